package mdf

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"
)

const twoFrames = "time 0\n\tobject A pos 1, 2, 3 vel 0, 0, 0\n\ntime 2\n\tobject A pos 4, 5, 6 vel 0, 0, 0\n\n"

func collect(p *Parser) *[]Warning {
	var warnings []Warning
	p.Warn = func(w Warning) { warnings = append(warnings, w) }
	return &warnings
}

func TestParseTwoKeyframes(t *testing.T) {
	tl, err := Parse(twoFrames)
	require.NoError(t, err)
	require.Equal(t, 2, tl.Len())

	first, second := tl.At(0), tl.At(1)
	require.Equal(t, 0.0, first.Timestamp)
	require.Equal(t, 2.0, second.Timestamp)
	require.Len(t, first.States, 1)
	require.Len(t, second.States, 1)
	require.Equal(t, "A", first.States[0].Name)
	require.Equal(t, mgl64.Vec3{1, 2, 3}, first.States[0].Pos)
	require.Equal(t, mgl64.Vec3{4, 5, 6}, second.States[0].Pos)
	require.Equal(t, 1, first.Line)
	require.Equal(t, 4, second.Line)
	require.Equal(t, 2.0, tl.Duration())
}

func TestParseAllFields(t *testing.T) {
	text := "time 1.5\n" +
		"\tobject box pos 1, 2, 3 vel 4, 5, 6 acc 0, -9.81, 0 rot 0, 90, 0 rvel 1, 1, 1 racc 0.5, 0, -0.5\n"
	tl, err := Parse(text)
	require.NoError(t, err)
	require.Equal(t, 1, tl.Len())

	s := tl.At(0).States[0]
	require.Equal(t, ObjectState{
		Name: "box",
		Pos:  mgl64.Vec3{1, 2, 3},
		Vel:  mgl64.Vec3{4, 5, 6},
		Acc:  mgl64.Vec3{0, -9.81, 0},
		Rot:  mgl64.Vec3{0, 90, 0},
		Rvel: mgl64.Vec3{1, 1, 1},
		Racc: mgl64.Vec3{0.5, 0, -0.5},
	}, s)
}

func TestParseMissingFieldsDefaultToZero(t *testing.T) {
	tl, err := Parse("time 0\n\tracc 0, 0, 1 object spinner\n")
	require.NoError(t, err)

	s := tl.At(0).States[0]
	require.Equal(t, "spinner", s.Name)
	require.Equal(t, mgl64.Vec3{}, s.Pos)
	require.Equal(t, mgl64.Vec3{}, s.Vel)
	require.Equal(t, mgl64.Vec3{0, 0, 1}, s.Racc)
}

func TestParseSkipsTempLines(t *testing.T) {
	text := strings.Join([]string{
		"time 0",
		"\ttemp scratch line",
		"\tobject A pos 0, 0, 0",
		"\ttempsub 1 2 3",
		"\tobject B pos 1, 1, 1",
		"\tobject C pos 2, 2, 2",
		"",
	}, "\n")
	tl, err := Parse(text)
	require.NoError(t, err)
	require.Equal(t, 1, tl.Len())

	states := tl.At(0).States
	require.Len(t, states, 3)
	require.Equal(t, "A", states[0].Name)
	require.Equal(t, "B", states[1].Name)
	require.Equal(t, "C", states[2].Name)
	require.Contains(t, tl.At(0).Raw, "temp scratch line")
}

func TestParseShortVector(t *testing.T) {
	text := "time 0\n\tobject A pos 1, 2\n\n"
	tl, err := Parse(text)
	require.Nil(t, tl)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	require.Equal(t, 2, pe.Line)
	require.Equal(t, "\tobject A pos 1, 2", pe.Raw)
	require.ErrorIs(t, err, ErrShortVector)
}

func TestParseNonNumericComponent(t *testing.T) {
	_, err := Parse("time 0\n\tobject A vel 1, x, 3\n")
	require.ErrorIs(t, err, ErrBadNumber)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, 2, pe.Line)
}

func TestParseTrailingComma(t *testing.T) {
	tl, err := Parse("time 0\n\tobject A pos 1, 2, 3,\n")
	require.NoError(t, err)
	require.Equal(t, mgl64.Vec3{1, 2, 3}, tl.At(0).States[0].Pos)

	_, err = Parse("time 0\n\tobject A pos 1,, 2, 3\n")
	require.ErrorIs(t, err, ErrBadNumber)
}

func TestParseMissingName(t *testing.T) {
	_, err := Parse("time 0\n\tpos 1, 2, 3\n")
	require.ErrorIs(t, err, ErrMissingName)

	_, err = Parse("time 0\n\tpos 1, 2, 3 object\n")
	require.ErrorIs(t, err, ErrMissingName)
}

func TestParseErrorAbortsWholeInput(t *testing.T) {
	text := twoFrames + "time 3\n\tobject B acc 1, 1\n\n"
	tl, err := Parse(text)
	require.Error(t, err)
	require.Nil(t, tl)
}

func TestParseEmptyInput(t *testing.T) {
	for _, text := range []string{"", "\n\n", "# nothing here\n", "\tobject A\n"} {
		var p Parser
		tl, err := p.Parse(text)
		require.NoError(t, err)
		require.Equal(t, 0, tl.Len())
		require.True(t, tl.IsEmpty())
	}
}

func TestParseTrailingKeyframeWithoutBlankLine(t *testing.T) {
	tl, err := Parse("time 0\n\tobject A\n\ntime 1\n\tobject B")
	require.NoError(t, err)
	require.Equal(t, 2, tl.Len())
	require.Equal(t, "B", tl.At(1).States[0].Name)
}

func TestParseKeyframeWithoutBody(t *testing.T) {
	tl, err := Parse("time 0\n\ntime 1\n\tobject A\n")
	require.NoError(t, err)
	require.Equal(t, 2, tl.Len())
	require.Empty(t, tl.At(0).States)
}

func TestParseTimeLineClosesOpenKeyframe(t *testing.T) {
	tl, err := Parse("time 0\n\tobject A\ntime 1\n\tobject B\n")
	require.NoError(t, err)
	require.Equal(t, 2, tl.Len())
	require.Len(t, tl.At(0).States, 1)
	require.Len(t, tl.At(1).States, 1)
}

func TestParseCRLF(t *testing.T) {
	tl, err := Parse(strings.ReplaceAll(twoFrames, "\n", "\r\n"))
	require.NoError(t, err)
	require.Equal(t, 2, tl.Len())
	require.Equal(t, mgl64.Vec3{4, 5, 6}, tl.At(1).States[0].Pos)
}

func TestParseDuplicateNames(t *testing.T) {
	tl, err := Parse("time 0\n\tobject A pos 1, 1, 1\n\tobject A pos 2, 2, 2\n")
	require.NoError(t, err)
	require.Len(t, tl.At(0).States, 2)
}

func TestLenientSkipsBadTimestamp(t *testing.T) {
	text := "time 0\n\tobject A\n\ntime soon\n\tobject B\n\ntime 2\n\tobject C\n\n"
	p := Parser{Mode: Lenient}
	warnings := collect(&p)

	tl, err := p.Parse(text)
	require.NoError(t, err)
	require.Equal(t, 2, tl.Len())
	require.Equal(t, "A", tl.At(0).States[0].Name)
	require.Equal(t, "C", tl.At(1).States[0].Name)

	require.Len(t, *warnings, 1)
	w := (*warnings)[0]
	require.Equal(t, TimestampWarning, w.Kind)
	require.Equal(t, 4, w.Line)
}

func TestStrictRejectsBadTimestamp(t *testing.T) {
	p := Parser{Mode: Strict}
	tl, err := p.Parse("time 0\n\tobject A\n\ntime\n\tobject B\n")
	require.Nil(t, tl)
	require.ErrorIs(t, err, ErrBadTimestamp)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, 4, pe.Line)
}

func TestUnknownKeysAreIgnored(t *testing.T) {
	var p Parser
	warnings := collect(&p)

	tl, err := p.Parse("time 0\n\tobject A colour red poss 1, 2, 3\n")
	require.NoError(t, err)
	require.Equal(t, "A", tl.At(0).States[0].Name)

	var messages []string
	for _, w := range *warnings {
		require.Equal(t, UnknownKeyWarning, w.Kind)
		messages = append(messages, w.Message)
	}
	require.Contains(t, messages, `ignoring "poss" (did you mean "pos"?)`)
	require.Contains(t, messages, `ignoring "colour"`)
}

func TestParseIsDeterministic(t *testing.T) {
	first, err := Parse(twoFrames)
	require.NoError(t, err)
	second, err := Parse(twoFrames)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestParseModelFile(t *testing.T) {
	text, err := os.ReadFile("testdata/model_small.mdf")
	require.NoError(t, err)

	var p Parser
	warnings := collect(&p)
	tl, err := p.Parse(string(text))
	require.NoError(t, err)
	require.Empty(t, *warnings)

	require.Equal(t, 4, tl.Len())
	require.Equal(t, 2.0, tl.Duration())
	for i := 0; i < tl.Len(); i++ {
		require.Len(t, tl.At(i).States, 1)
		require.Equal(t, "box", tl.At(i).States[0].Name)
	}
	require.Equal(t, mgl64.Vec3{0, -9.81, 0}, tl.At(1).States[0].Acc)
	require.Equal(t, mgl64.Vec3{0, 0.5, 0}, tl.At(2).States[0].Racc)
}
