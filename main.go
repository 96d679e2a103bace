package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"PerilousSimulator/internal/effects"
	"PerilousSimulator/internal/perilous"
	"PerilousSimulator/internal/settings"
)

func main() {
	rosterName := flag.String("roster", "skirmish.yaml", "roster file under ./library/")
	settingsPath := flag.String("settings", "./library/settings.yaml", "settings file, empty for defaults")
	frames := flag.Int("frames", 600, "frames to simulate")
	watch := flag.Bool("watch", false, "reload settings when the file changes")
	audio := flag.Bool("audio", false, "play cues on the default audio device")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	if err := initLogger(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer closeLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *rosterName, *settingsPath, *frames, *watch, *audio); err != nil {
		combatLogger.Error("skirmish failed", zap.Error(err))
		closeLogger()
		os.Exit(1)
	}
}

func run(ctx context.Context, rosterName, settingsPath string, frames int, watch, audio bool) error {
	s, err := settings.Load(settingsPath)
	if err != nil {
		return err
	}
	store := settings.NewStore(s)
	if watch && settingsPath != "" {
		if err := settings.Watch(ctx, settingsPath, store, combatLogger); err != nil {
			return err
		}
	}

	roster, err := loadRoster(rosterName)
	if err != nil {
		return err
	}
	fmt.Printf("Loading roster: %s\n", rosterName)
	roster.PrintInfo()
	fmt.Printf("\n")

	sounds := effects.NewSoundBank(effects.DefaultCues())
	defer sounds.Close()
	if audio {
		if err := sounds.Attach(); err != nil {
			combatLogger.Warn("audio unavailable", zap.Error(err))
		}
	}

	sk, err := newSkirmish(skirmishConfig{
		Roster:   roster,
		Settings: store,
		Logger:   combatLogger,
		Sounds:   sounds,
		Options:  []perilous.Option{perilous.WithMeter(otel.Meter("PerilousSimulator"))},
	})
	if err != nil {
		return err
	}
	defer sk.Close()

	for i := 0; i < frames; i++ {
		if err := sk.Frame(ctx); err != nil {
			return err
		}
		if !audio {
			sounds.Advance(frameTime)
		}
	}

	st := &sk.stats
	fmt.Printf("=== %s: %d frames ===\n", roster.Name, st.Frames)
	fmt.Printf("Started: %d | Ended: %d | Bashes: %d | Deaths: %d | Swept: %d\n",
		st.Started.Load(), st.Ended.Load(), st.Bashes.Load(), st.Deaths, st.Swept)
	fmt.Printf("Peak attackers per target: 68th: %v, 95th: %v (cap %d)\n",
		percentile(st.PeakPerFrame, 0.68), percentile(st.PeakPerFrame, 0.95), store.Get().MaxAttackers)
	if st.Unverified > 0 {
		return fmt.Errorf("%d frames ended with registry and counter out of sync", st.Unverified)
	}
	return nil
}
