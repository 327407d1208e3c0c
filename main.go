package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matt-g-everett/mdfplay/api"
	"github.com/matt-g-everett/mdfplay/mdf"
	"github.com/matt-g-everett/mdfplay/playback"
	"github.com/matt-g-everett/mdfplay/stream"
)

type app struct {
	Config    stream.Config
	Client    mqtt.Client
	Timeline  *mdf.Timeline
	Loop      *playback.Loop
	Scheduler *playback.Scheduler
	Control   *stream.Control
}

func newApp() *app {
	a := new(app)
	return a
}

func (a *app) handleOnConnect(client mqtt.Client) {
	log.Println("Connected")
	if err := a.Control.Subscribe(); err != nil {
		log.Printf("Subscribing to %s: %v", a.Config.Mqtt.Topics.Control, err)
	}
}

func (a *app) readConfig(configPath string) error {
	f, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer f.Close()

	a.Config, err = stream.DecodeConfig(f)
	return err
}

func (a *app) readTimeline(inputPath string) error {
	var text []byte
	var err error
	if inputPath == "-" {
		text, err = io.ReadAll(os.Stdin)
	} else {
		text, err = os.ReadFile(inputPath)
	}
	if err != nil {
		return err
	}

	p := mdf.Parser{
		Mode: mdf.Lenient,
		Warn: func(w mdf.Warning) { log.Printf("%s: %v", inputPath, w) },
	}
	if a.Config.Playback.Strict {
		p.Mode = mdf.Strict
	}

	a.Timeline, err = p.Parse(string(text))
	return err
}

func (a *app) newClient() {
	options := mqtt.NewClientOptions().
		AddBroker(a.Config.Mqtt.URL).
		SetClientID(a.Config.Mqtt.ClientID).
		SetUsername(a.Config.Mqtt.Username).
		SetPassword(a.Config.Mqtt.Password).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetOnConnectHandler(a.handleOnConnect)
	a.Client = mqtt.NewClient(options)
}

func (a *app) connect() error {
	if token := a.Client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (a *app) run(ctx context.Context) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.Loop.Run(ctx)
	})

	if a.Config.Api.Listen != "" {
		server := api.NewApi(a.Scheduler)
		g.Go(func() error {
			return server.Serve(ctx, a.Config.Api.Listen)
		})
	}

	g.Go(func() error {
		select {
		case <-a.Scheduler.Done():
			log.Printf("Playback %s finished", a.Scheduler.ID())
		case <-ctx.Done():
			a.Scheduler.Cancel()
		}
		stop()
		return nil
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func main() {
	mqtt.ERROR = log.New(os.Stdout, "", 0)

	// Parse command line parameters
	configPath := flag.String("config", "config.yaml", "YAML config file.")
	inputPath := flag.String("input", "model.mdf", "mdf timeline to play, or - for stdin.")
	dryRun := flag.Bool("dry-run", false, "Log keyframes instead of publishing them.")
	flag.Parse()

	a := newApp()
	if err := a.readConfig(*configPath); err != nil {
		log.Fatalf("Reading config: %v", err)
	}
	log.Printf("Config: %+v", a.Config.Playback)

	if err := a.readTimeline(*inputPath); err != nil {
		log.Fatalf("Reading timeline: %v", err)
	}
	log.Printf("Parsed %d keyframes spanning %.3fs", a.Timeline.Len(), a.Timeline.Duration())

	session := uuid.New()
	var applier playback.Applier
	if *dryRun {
		applier = stream.NewLogApplier(nil)
	} else {
		a.newClient()
		applier = stream.NewStreamer(a.Config, a.Client, session.String())
	}

	a.Loop = playback.NewLoop(a.Config.TickInterval())
	a.Scheduler = playback.NewScheduler(a.Loop, applier, playback.Options{
		ID:       session,
		HoldLast: a.Config.Playback.HoldLast,
	})
	a.Loop.OnStep(a.Scheduler.Tick)

	if a.Client != nil {
		a.Control = stream.NewControl(a.Config, a.Client, session.String(), a.Scheduler)
		if err := a.connect(); err != nil {
			log.Fatalf("Connecting to %s: %v", a.Config.Mqtt.URL, err)
		}
		defer a.Client.Disconnect(250)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("Starting playback %s, ticking every %v", session, a.Loop.StepSize())
	if err := a.Scheduler.Start(a.Timeline); err != nil {
		log.Fatalf("Starting playback: %v", err)
	}

	if err := a.run(ctx); err != nil {
		log.Fatalf("Playback: %v", err)
	}
}
