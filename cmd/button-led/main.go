// Command button-led toggles an LED on every debounced press of a push button.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jeffchao/backoff"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/button-led/internal/button"
	"github.com/sweeney/button-led/internal/config"
	"github.com/sweeney/button-led/internal/gpio"
	"github.com/sweeney/button-led/internal/logic"
	"github.com/sweeney/button-led/internal/queue"
	"github.com/sweeney/button-led/internal/status"
	"github.com/sweeney/button-led/internal/toggle"
)

// statsInterval is how often handler counters are copied into the tracker.
const statsInterval = time.Second

func main() {
	cfg, err := config.Parse("button-led", os.Args[1:])
	if errors.Is(err, config.ErrHelp) {
		return
	}
	if err != nil {
		logrus.Fatalf("fatal: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.Fatalf("fatal: %v", err)
	}
	log := logger.WithFields(logrus.Fields{
		"app":     "button-led",
		"boot_id": uuid.New().String(),
	})

	if err := run(cfg, log); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config, log *logrus.Entry) error {
	ctrl, err := openController(cfg, openBackend, time.Sleep, log)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() {
		if err := ctrl.Close(); err != nil {
			log.WithError(err).Warn("failed to release gpio")
		}
	}()

	// Print state mode
	if cfg.PrintState {
		return printState(os.Stdout, ctrl, cfg)
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		Backend:       cfg.Backend,
		ButtonPin:     cfg.ButtonPin,
		LEDPin:        cfg.LEDPin,
		Polarity:      cfg.Polarity().String(),
		DebounceMs:    cfg.Debounce.Milliseconds(),
		QueueCapacity: cfg.QueueCapacity,
		HeartbeatMs:   cfg.Heartbeat.Milliseconds(),
	})

	a, err := startup(cfg, ctrl, gpio.NewMonotonicClock(), tracker, log)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return runLoop(context.Background(), a, tracker, cfg.Heartbeat, time.Now, ticker.C, sigCh, log)
}

// app is the wired producer/consumer pair.
type app struct {
	queue   *queue.Queue[logic.ButtonEvent]
	handler *button.Handler
	task    *toggle.Task
}

// startup wires the system in the required order: queue, then GPIO
// (output, input, interrupt), then the toggle task. If the queue cannot be
// created nothing is configured.
func startup(cfg config.Config, ctrl gpio.Controller, clock gpio.Clock, tracker *status.Tracker, log *logrus.Entry) (*app, error) {
	q, err := queue.New[logic.ButtonEvent](cfg.QueueCapacity)
	if err != nil {
		log.WithError(err).Error("failed to create button queue")
		return nil, fmt.Errorf("create button queue: %w", err)
	}

	handler := button.NewHandler(cfg.ButtonPin, cfg.Debounce, clock, q.Sender(), handlerOptions(cfg.Backend)...)

	if err := configureGPIO(cfg, ctrl, handler); err != nil {
		return nil, err
	}

	task := toggle.New(q, ctrl, cfg.LEDPin, cfg.Polarity(), log, tracker)

	log.WithFields(logrus.Fields{
		"backend":    cfg.Backend,
		"button_pin": cfg.ButtonPin,
		"led_pin":    cfg.LEDPin,
		"polarity":   cfg.Polarity().String(),
		"debounce":   cfg.Debounce.String(),
		"queue":      q.Cap(),
	}).Info("button-controlled LED initialized")

	return &app{queue: q, handler: handler, task: task}, nil
}

// gosched is the yield used by hosted backends, whose handlers run on a
// goroutine.
var gosched = runtime.Gosched

// handlerOptions picks the wake yield for the backend. The machine backend
// calls the handler from a hardware ISR, where entering the scheduler is not
// allowed; its toggle task polls the wake flag instead.
func handlerOptions(backend string) []button.Option {
	if backend == config.BackendMachine {
		return []button.Option{button.WithYield(func() {})}
	}
	return []button.Option{button.WithYield(gosched)}
}

func configureGPIO(cfg config.Config, ctrl gpio.Controller, handler *button.Handler) error {
	if err := ctrl.ConfigureOutput(cfg.LEDPin, cfg.Polarity().Level(logic.StateOff)); err != nil {
		return fmt.Errorf("configure led pin %d: %w", cfg.LEDPin, err)
	}

	// The button shorts the line to ground, so a press is a falling edge.
	in := gpio.InputConfig{PullUp: true, PullDown: false, Edge: gpio.EdgeFalling}
	if err := ctrl.ConfigureInput(cfg.ButtonPin, in); err != nil {
		return fmt.Errorf("configure button pin %d: %w", cfg.ButtonPin, err)
	}

	if err := ctrl.RegisterInterrupt(cfg.ButtonPin, handler.Interrupt, cfg.ButtonPin); err != nil {
		return fmt.Errorf("register button interrupt: %w", err)
	}
	return nil
}

// refresh copies the handler counters into the tracker.
func (a *app) refresh(tracker *status.Tracker) {
	s := a.handler.Stats()
	tracker.SetEdges(status.EdgeCounts{
		Accepted: s.Accepted,
		Rejected: s.Rejected,
		Dropped:  s.Dropped,
		Yields:   s.Yields,
	}, a.queue.Len())
}

func runLoop(ctx context.Context, a *app, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal, log *logrus.Entry) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.task.Run(gctx)
	})

	for {
		select {
		case s := <-sig:
			log.Infof("received %v, shutting down", s)
			cancel()
			err := g.Wait()
			a.refresh(tracker)
			log.WithFields(tracker.Snapshot().Fields()).Info("shutdown")
			return err

		case <-gctx.Done():
			return g.Wait()

		case <-tick:
			a.refresh(tracker)
			if tracker.CheckHeartbeat(now(), heartbeat) {
				log.WithFields(tracker.Snapshot().Fields()).Info("heartbeat")
			}
		}
	}
}

// openRetryInterval is the Fibonacci backoff unit between open attempts.
const openRetryInterval = 100 * time.Millisecond

// openController opens the configured backend, retrying with a Fibonacci
// backoff while the GPIO device is not yet available at boot. It makes at
// most 1+OpenRetries attempts and waits before each retry, never after the
// last one.
func openController(cfg config.Config, open func(config.Config) (gpio.Controller, error), sleep func(time.Duration), log *logrus.Entry) (gpio.Controller, error) {
	ctrl, err := open(cfg)
	if err == nil || errors.Is(err, gpio.ErrUnsupported) || cfg.OpenRetries <= 0 {
		return ctrl, err
	}

	f := backoff.Fibonacci()
	f.Interval = openRetryInterval
	f.MaxRetries = cfg.OpenRetries
	for f.Next() {
		// The first Fibonacci slot is zero; wait one interval instead.
		delay := f.Delay
		if delay == 0 {
			delay = f.Interval
		}
		log.WithError(err).WithFields(logrus.Fields{
			"attempt":  f.Retries,
			"retry_in": delay.String(),
		}).Warn("gpio backend not ready, retrying")
		sleep(delay)

		if ctrl, err = open(cfg); err == nil {
			return ctrl, nil
		}
	}
	return nil, err
}

func openBackend(cfg config.Config) (gpio.Controller, error) {
	switch cfg.Backend {
	case config.BackendCdev:
		c, err := gpio.NewCdevController(cfg.Chip)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.BackendPeriph:
		c, err := gpio.NewPeriphController()
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.BackendMachine:
		c, err := gpio.NewMachineController()
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// printState reads both lines once. The LED line is requested as a plain
// input so reading it does not change what it shows.
func printState(w io.Writer, ctrl gpio.Controller, cfg config.Config) error {
	if err := ctrl.ConfigureInput(cfg.ButtonPin, gpio.InputConfig{PullUp: true}); err != nil {
		return fmt.Errorf("configure button pin %d: %w", cfg.ButtonPin, err)
	}
	if err := ctrl.ConfigureInput(cfg.LEDPin, gpio.InputConfig{}); err != nil {
		return fmt.Errorf("configure led pin %d: %w", cfg.LEDPin, err)
	}

	btn, err := ctrl.Value(cfg.ButtonPin)
	if err != nil {
		return fmt.Errorf("read button: %w", err)
	}
	led, err := ctrl.Value(cfg.LEDPin)
	if err != nil {
		return fmt.Errorf("read led: %w", err)
	}

	fmt.Fprintf(w, "BUTTON: %s, LED: %s\n", buttonString(btn), cfg.Polarity().StateOf(led))
	return nil
}

func buttonString(level int) string {
	if level == logic.LevelLow {
		return "PRESSED"
	}
	return "RELEASED"
}

func newLogger(level, format string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(lvl)
	switch strings.ToLower(format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return logger, nil
}
