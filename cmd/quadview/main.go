package main

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/quadspace/models"
	"github.com/aukilabs/quadspace/modules"
	"github.com/aukilabs/quadspace/modules/spawner"
	"github.com/aukilabs/quadspace/modules/wander"
	"github.com/aukilabs/quadspace/quadtree"
	"github.com/gdamore/tcell/v2"
	"github.com/segmentio/encoding/json"
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Width            float64       `cli:"" env:"QUADVIEW_WIDTH"             help:"The world width."`
	Height           float64       `cli:"" env:"QUADVIEW_HEIGHT"            help:"The world height."`
	MaxElements      int           `cli:"" env:"QUADVIEW_MAX_ELEMENTS"      help:"The number of entities a quadtree leaf holds before subdividing."`
	MaxDepth         int           `cli:"" env:"QUADVIEW_MAX_DEPTH"         help:"The maximum quadtree depth."`
	FrameDuration    time.Duration `cli:"" env:"QUADVIEW_FRAME_DURATION"    help:"The duration of a world frame."`
	Wanderers        int           `cli:"" env:"QUADVIEW_WANDERERS"         help:"The number of wandering entities."`
	WanderSpeed      float64       `cli:"" env:"QUADVIEW_WANDER_SPEED"      help:"The wanderer speed in world units per second."`
	Spawners         int           `cli:"" env:"QUADVIEW_SPAWNERS"          help:"The number of spawners."`
	CameraSpeed      float64       `cli:"" env:"QUADVIEW_CAMERA_SPEED"      help:"The spawner camera speed in world units per second."`
	ActivationMargin float64       `cli:"" env:"QUADVIEW_ACTIVATION_MARGIN" help:"How far the activation ring extends around the camera view."`
	Seed             uint64        `cli:"" env:"QUADVIEW_SEED"              help:"The random seed."`
	Help             bool          `cli:"" env:"-"                          help:"Show help."`
}

func main() {
	conf := config{
		Width:            400,
		Height:           200,
		MaxElements:      quadtree.DefaultMaxElements,
		MaxDepth:         6,
		FrameDuration:    time.Millisecond * 50,
		Wanderers:        60,
		WanderSpeed:      25,
		Spawners:         40,
		CameraSpeed:      20,
		ActivationMargin: 30,
		Seed:             1,
	}

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Shows a quadtree indexed world in the terminal.").
		Options(&conf)
	cli.Load()

	errors.Encoder = json.Marshal

	if err := run(ctx, conf); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, conf config) error {
	world, err := models.NewWorld(
		quadtree.NewRect(0, 0, conf.Width, conf.Height),
		conf.FrameDuration,
		quadtree.WithName("quadview"),
		quadtree.WithMaxElements(conf.MaxElements),
		quadtree.WithMaxDepth(conf.MaxDepth),
		quadtree.WithInvariantChecks(true),
	)
	if err != nil {
		return errors.New("creating world failed").Wrap(err)
	}
	defer world.Close()

	spawners := &spawner.Module{
		Count:            conf.Spawners,
		CameraSize:       quadtree.Vector2f{X: conf.Width / 4, Y: conf.Height / 4},
		CameraVelocity:   quadtree.Vector2f{X: conf.CameraSpeed, Y: conf.CameraSpeed / 2},
		ActivationMargin: conf.ActivationMargin,
		MobLifetime:      time.Second * 5,
		Seed:             conf.Seed + 1,
	}

	detach, err := modules.Attach(world,
		&wander.Module{
			Count: conf.Wanderers,
			Speed: conf.WanderSpeed,
			Seed:  conf.Seed,
		},
		spawners,
	)
	if err != nil {
		return errors.New("attaching modules failed").Wrap(err)
	}
	defer detach()

	screen, err := tcell.NewScreen()
	if err != nil {
		return errors.New("creating screen failed").Wrap(err)
	}
	if err := screen.Init(); err != nil {
		return errors.New("initializing screen failed").Wrap(err)
	}
	defer screen.Fini()

	v := &view{
		world:   world,
		spawner: &spawners.State,
	}

	// Logs would corrupt the screen. The last one is shown in the status
	// line.
	logChan := make(chan string, 1)
	logs.Encoder = json.Marshal
	logs.SetLogger(func(e logs.Entry) {
		select {
		case logChan <- fmt.Sprint(e):
		default:
		}
	})

	frameChan := make(chan models.Frame, 1)
	unsubscribe := world.HandleFrame(func(f models.Frame) {
		select {
		case frameChan <- f:
		default:
		}
	})
	defer unsubscribe()

	eventChan := make(chan tcell.Event, 16)
	stopChan := make(chan struct{})
	defer close(stopChan)
	go pollEvents(screen, eventChan, stopChan)

	go world.StartDispatchFrames()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev := <-eventChan:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape ||
					ev.Key() == tcell.KeyCtrlC ||
					(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
					return nil
				}

			case *tcell.EventResize:
				screen.Sync()
			}

		case msg := <-logChan:
			v.lastLog = msg

		case f := <-frameChan:
			v.frame = f.Number
			v.draw(screen)
			screen.Show()
		}
	}
}

type eventPoller interface {
	PollEvent() tcell.Event
}

// pollEvents forwards input events until stop is closed or the screen is
// finalized.
func pollEvents(p eventPoller, events chan<- tcell.Event, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		ev := p.PollEvent()
		if ev == nil {
			return
		}

		select {
		case events <- ev:
		case <-stop:
			return
		}
	}
}
