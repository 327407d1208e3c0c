package mdf

import (
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/go-gl/mathgl/mgl64"
)

const keywordTime = "time"

// Mode selects how a malformed time line is handled.
type Mode int

const (
	// Lenient skips a keyframe whose timestamp does not parse and reports a
	// TimestampWarning.
	Lenient Mode = iota
	// Strict fails the parse with ErrBadTimestamp instead.
	Strict
)

var reservedWords = map[string]bool{
	"temp":    true,
	"tempsub": true,
}

type keyDef struct {
	arity int
	set   func(s *ObjectState, args []string) error
}

func vectorKey(field func(s *ObjectState) *mgl64.Vec3) keyDef {
	return keyDef{3, func(s *ObjectState, args []string) error {
		v, err := parseVec3(args)
		if err != nil {
			return err
		}
		*field(s) = v
		return nil
	}}
}

var keys = map[string]keyDef{
	"object": {1, func(s *ObjectState, args []string) error {
		s.Name = args[0]
		return nil
	}},
	"pos":  vectorKey(func(s *ObjectState) *mgl64.Vec3 { return &s.Pos }),
	"vel":  vectorKey(func(s *ObjectState) *mgl64.Vec3 { return &s.Vel }),
	"acc":  vectorKey(func(s *ObjectState) *mgl64.Vec3 { return &s.Acc }),
	"rot":  vectorKey(func(s *ObjectState) *mgl64.Vec3 { return &s.Rot }),
	"rvel": vectorKey(func(s *ObjectState) *mgl64.Vec3 { return &s.Rvel }),
	"racc": vectorKey(func(s *ObjectState) *mgl64.Vec3 { return &s.Racc }),
}

// keyOrder fixes the order suggestions are tried in.
var keyOrder = []string{"object", "pos", "vel", "acc", "rot", "rvel", "racc"}

// Parser turns mdf text into a Timeline.
type Parser struct {
	Mode Mode
	// Warn receives non-fatal diagnostics. It may be nil.
	Warn func(Warning)
}

// Parse parses text in Lenient mode, logging diagnostics.
func Parse(text string) (*Timeline, error) {
	p := Parser{Mode: Lenient, Warn: func(w Warning) {
		log.Printf("mdf: %v", w)
	}}
	return p.Parse(text)
}

type bodyLine struct {
	num  int
	text string
}

type openKeyframe struct {
	timestamp float64
	line      int
	header    string
	body      []bodyLine
}

// Parse parses text. On error no Timeline is returned.
func (p *Parser) Parse(text string) (*Timeline, error) {
	var keyframes []Keyframe
	var open *openKeyframe
	skipping := false

	closeOpen := func() error {
		if open == nil {
			return nil
		}
		kf, err := p.compile(open)
		open = nil
		if err != nil {
			return err
		}
		keyframes = append(keyframes, kf)
		return nil
	}

	for i, line := range strings.Split(text, "\n") {
		num := i + 1
		line = strings.TrimSuffix(line, "\r")

		if strings.TrimSpace(line) == "" {
			if err := closeOpen(); err != nil {
				return nil, err
			}
			skipping = false
			continue
		}

		if line[0] == '\t' || line[0] == ' ' {
			if open != nil {
				open.body = append(open.body, bodyLine{num, line})
			} else if !skipping {
				p.warn(StrayLineWarning, num, line, "body line outside a keyframe")
			}
			continue
		}

		fields := strings.Fields(line)
		if fields[0] != keywordTime {
			p.warn(StrayLineWarning, num, line, fmt.Sprintf("unexpected %q", fields[0]))
			continue
		}

		if err := closeOpen(); err != nil {
			return nil, err
		}

		ts, err := parseTimestamp(fields)
		if err != nil {
			if p.Mode == Strict {
				return nil, &ParseError{Line: num, Raw: line, Reason: err}
			}
			p.warn(TimestampWarning, num, line, fmt.Sprintf("%v, keyframe skipped", err))
			skipping = true
			continue
		}

		skipping = false
		open = &openKeyframe{timestamp: ts, line: num, header: line}
	}

	if err := closeOpen(); err != nil {
		return nil, err
	}

	return NewTimeline(keyframes), nil
}

func (p *Parser) compile(o *openKeyframe) (Keyframe, error) {
	raw := make([]string, 0, len(o.body)+1)
	raw = append(raw, o.header)

	states := make([]ObjectState, 0, len(o.body))
	for _, b := range o.body {
		raw = append(raw, b.text)

		tokens := strings.Fields(b.text)
		if reservedWords[tokens[0]] {
			continue
		}

		s, err := p.parseState(b, tokens)
		if err != nil {
			return Keyframe{}, &ParseError{Line: b.num, Raw: b.text, Reason: err}
		}
		states = append(states, s)
	}

	return Keyframe{
		Timestamp: o.timestamp,
		States:    states,
		Raw:       strings.Join(raw, "\n"),
		Line:      o.line,
	}, nil
}

func (p *Parser) parseState(b bodyLine, tokens []string) (ObjectState, error) {
	var s ObjectState
	for i := 0; i < len(tokens); {
		key := tokens[i]
		def, ok := keys[key]
		if !ok {
			p.unknownKey(b, key)
			i++
			continue
		}

		args := tokens[i+1:]
		if len(args) < def.arity {
			reason := ErrShortVector
			if key == "object" {
				reason = ErrMissingName
			}
			return s, fmt.Errorf("%s wants %d values, got %d: %w", key, def.arity, len(args), reason)
		}

		if err := def.set(&s, args[:def.arity]); err != nil {
			return s, fmt.Errorf("%s: %w", key, err)
		}
		i += 1 + def.arity
	}

	if s.Name == "" {
		return s, ErrMissingName
	}
	return s, nil
}

func (p *Parser) unknownKey(b bodyLine, key string) {
	msg := fmt.Sprintf("ignoring %q", key)
	for _, k := range keyOrder {
		if levenshtein.ComputeDistance(key, k) <= 1 {
			msg = fmt.Sprintf("ignoring %q (did you mean %q?)", key, k)
			break
		}
	}
	p.warn(UnknownKeyWarning, b.num, b.text, msg)
}

func (p *Parser) warn(kind WarningKind, num int, raw, msg string) {
	if p.Warn == nil {
		return
	}
	p.Warn(Warning{Kind: kind, Line: num, Raw: raw, Message: msg})
}

func parseTimestamp(fields []string) (float64, error) {
	if len(fields) < 2 {
		return 0, fmt.Errorf("%w: no value after %q", ErrBadTimestamp, keywordTime)
	}
	ts, err := strconv.ParseFloat(fields[1], 64)
	if err != nil || math.IsNaN(ts) || math.IsInf(ts, 0) {
		return 0, fmt.Errorf("%w: %q", ErrBadTimestamp, fields[1])
	}
	return ts, nil
}

func parseVec3(args []string) (mgl64.Vec3, error) {
	var v mgl64.Vec3
	for i, a := range args {
		f, err := strconv.ParseFloat(strings.TrimSuffix(a, ","), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return v, fmt.Errorf("component %d %q: %w", i, a, ErrBadNumber)
		}
		v[i] = f
	}
	return v, nil
}
