package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"lingofocus/internal/audio"
	"lingofocus/internal/bootstrap"
	"lingofocus/internal/config"
	"lingofocus/internal/logging"
	"lingofocus/internal/models"
	"lingofocus/internal/session"
	"lingofocus/internal/store"
)

func main() {
	collectionID := flag.String("collection", "", "Collection id to study")
	category := flag.String("category", "", "Pick from the collections of one category (OPIC, AI_ENGINEERING, ...)")
	memory := flag.Bool("memory", false, "Use an in-memory store; nothing is saved")
	silent := flag.Bool("silent", false, "Do not play audio even when a player is configured")
	flag.Parse()

	cfg := config.Load()
	logger := logging.Setup(cfg.Debug, true).Level(zerolog.WarnLevel)
	if cfg.Debug {
		logger = logger.Level(zerolog.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := bootstrap.OpenStore(ctx, cfg, *memory, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer closeStore()

	in := bufio.NewReader(os.Stdin)

	c, err := chooseCollection(ctx, st, in, *collectionID, *category)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var speaker session.Speaker
	if !*silent {
		tts := audio.NewTTSService(cfg.AudioPath)
		channel := audio.NewChannel(audio.NewPlayerEngine(tts, cfg.AudioPlayer, cfg.CuePath), audio.WithLogger(logger))
		if channel.Available() {
			speaker = channel
		}
	}

	settings := st.Settings(ctx)
	cards := session.NewSelector(st, nil).BuildSession(ctx, c, settings.BatchSize)
	before := make(map[string]int, len(cards))
	for _, card := range cards {
		before[card.ID] = card.ReviewCount
	}

	t := &terminal{}
	done := make(chan struct{})
	seq := session.New(cards, session.Options{
		Speaker:    speaker,
		Recorder:   st,
		Settings:   settings,
		Logger:     logger,
		Context:    ctx,
		OnChange:   t.render,
		OnComplete: func() { close(done) },
	})

	fmt.Printf("\n%s · %d cards · reveal %ds · next %ds\n", c.DisplayTopic(), len(cards), settings.RevealDelaySeconds, settings.AutoAdvanceDelaySeconds)
	fmt.Println("keys: p pause/resume · n next · b back · +/- reveal delay · ]/[ next delay · q quit")

	started := time.Now()
	if err := seq.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start session")
	}

	commands := make(chan string)
	go readCommands(in, commands)

	for {
		select {
		case <-done:
			printSummary(seq.Cards(), before, time.Since(started))
			return
		case <-ctx.Done():
			seq.Abort()
			fmt.Println("\nsession aborted")
			return
		case cmd, ok := <-commands:
			if !ok {
				seq.Abort()
				return
			}
			switch cmd {
			case "p":
				if seq.State().Paused {
					seq.Resume()
				} else {
					seq.Pause()
				}
			case "n":
				seq.Next()
			case "b":
				seq.Previous()
			case "+", "-", "]", "[":
				settings = adjust(settings, cmd)
				saved, err := st.SaveSettings(ctx, settings)
				if err != nil {
					logger.Warn().Err(err).Msg("failed to save settings")
				} else {
					settings = saved
				}
				seq.UpdateSettings(settings)
				fmt.Printf("  reveal %ds · next %ds\n", settings.RevealDelaySeconds, settings.AutoAdvanceDelaySeconds)
			case "q":
				seq.Pause()
				fmt.Print("Quit this session? Progress so far is kept. (y/N) ")
				if answer, ok := <-commands; ok && strings.EqualFold(answer, "y") {
					seq.Abort()
					printSummary(seq.Cards(), before, time.Since(started))
					return
				}
				seq.Resume()
			}
		}
	}
}

func adjust(s models.Settings, key string) models.Settings {
	switch key {
	case "+":
		return s.AdjustRevealDelay(1)
	case "-":
		return s.AdjustRevealDelay(-1)
	case "]":
		return s.AdjustAutoAdvanceDelay(1)
	default:
		return s.AdjustAutoAdvanceDelay(-1)
	}
}

func readCommands(in *bufio.Reader, out chan<- string) {
	defer close(out)
	for {
		line, err := in.ReadString('\n')
		if cmd := strings.TrimSpace(line); cmd != "" {
			out <- cmd
		}
		if err != nil {
			return
		}
	}
}

// chooseCollection resolves -collection, or lists collections and asks for one
func chooseCollection(ctx context.Context, st *store.Store, in *bufio.Reader, id, category string) (models.Collection, error) {
	if id != "" {
		return st.GetCollection(ctx, id)
	}

	var (
		collections []models.Collection
		err         error
	)
	if category != "" {
		cat, perr := models.ParseCategory(category)
		if perr != nil {
			return models.Collection{}, perr
		}
		collections, err = st.CollectionsByCategory(ctx, cat)
	} else {
		collections, err = st.ListCollections(ctx)
	}
	if err != nil {
		return models.Collection{}, err
	}
	if len(collections) == 0 {
		return models.Collection{}, fmt.Errorf("no collections found")
	}

	for i, c := range collections {
		fmt.Printf("%3d. [%s] %s (%d items)\n", i+1, c.Category.Label(), c.DisplayTopic(), len(c.Items))
	}
	fmt.Print("Choose a collection: ")
	line, _ := in.ReadString('\n')
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n < 1 || n > len(collections) {
		return models.Collection{}, fmt.Errorf("invalid choice %q", strings.TrimSpace(line))
	}
	return collections[n-1], nil
}
