package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"net/url"
	"os"
	"reflect"
	"strings"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/aukilabs/quadspace/featureflag"
	qhttp "github.com/aukilabs/quadspace/http"
	"github.com/aukilabs/quadspace/models"
	"github.com/aukilabs/quadspace/modules"
	"github.com/aukilabs/quadspace/modules/spawner"
	"github.com/aukilabs/quadspace/modules/wander"
	"github.com/aukilabs/quadspace/quadtree"
	"github.com/aukilabs/quadspace/smoketest"
	qwebsocket "github.com/aukilabs/quadspace/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

var (
	// The Quadspace version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "quadspace_info",
		Help:        "Quadspace information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr               string          `cli:""        env:"QUADSPACE_ADDR"                  help:"Listening address for client connections."`
	AdminAddr          string          `cli:""        env:"QUADSPACE_ADMIN_ADDR"            help:"Admin listening address."`
	PublicEndpoint     string          `cli:""        env:"QUADSPACE_PUBLIC_ENDPOINT"       help:"The public endpoint where this Quadspace server is reachable."`
	LogLevel           string          `cli:""        env:"QUADSPACE_LOG_LEVEL"             help:"Log level (debug|info|warning|error)."`
	LogIndent          bool            `cli:""        env:"QUADSPACE_LOG_INDENT"            help:"Indent logs."`
	ClientIdleTimeout  time.Duration   `cli:",hidden" env:"QUADSPACE_CLIENT_IDLE_TIMEOUT"   help:"Time until an idle client will be disconnected"`
	ClientMaxEntities  int             `cli:",hidden" env:"QUADSPACE_CLIENT_MAX_ENTITIES"   help:"The maximum number of entities sent to a client in a frame."`
	FrameDuration      time.Duration   `cli:",hidden" env:"QUADSPACE_FRAME_DURATION"        help:"The duration of a world frame."`
	LogSummaryInterval time.Duration   `cli:",hidden" env:"QUADSPACE_LOG_SUMMARY_INTERVAL"  help:"The duration between each log summary by connection."`
	ShutdownTimeout    time.Duration   `cli:",hidden" env:"QUADSPACE_SHUTDOWN_TIMEOUT"      help:"The time given to servers to shut down gracefully."`
	World              worldConfig     `cli:""        env:"-"                               help:"World configuration."`
	Wanderers          wanderersConfig `cli:""        env:"-"                               help:"Wanderer module configuration."`
	Spawners           spawnersConfig  `cli:""        env:"-"                               help:"Spawner module configuration."`
	FeatureFlags       []string        `cli:",hidden" env:"QUADSPACE_FEATURE_FLAGS"         help:"Comma separated feature flags"`
	Version            bool            `cli:""        env:"-"                               help:"Show version."`
	Help               bool            `cli:""        env:"-"                               help:"Show help."`
}

type worldConfig struct {
	MinX        float64 `cli:""        env:"QUADSPACE_WORLD_MIN_X"        help:"The world left edge."`
	MinY        float64 `cli:""        env:"QUADSPACE_WORLD_MIN_Y"        help:"The world bottom edge."`
	Width       float64 `cli:""        env:"QUADSPACE_WORLD_WIDTH"        help:"The world width."`
	Height      float64 `cli:""        env:"QUADSPACE_WORLD_HEIGHT"       help:"The world height."`
	MaxElements int     `cli:",hidden" env:"QUADSPACE_WORLD_MAX_ELEMENTS" help:"The number of entities a quadtree leaf holds before subdividing."`
	MaxDepth    int     `cli:",hidden" env:"QUADSPACE_WORLD_MAX_DEPTH"    help:"The maximum quadtree depth."`
}

type wanderersConfig struct {
	Count int     `cli:"" env:"QUADSPACE_WANDERERS_COUNT" help:"The number of wandering entities."`
	Speed float64 `cli:"" env:"QUADSPACE_WANDERERS_SPEED" help:"The wanderer speed in world units per second."`
	Seed  uint64  `cli:",hidden" env:"QUADSPACE_WANDERERS_SEED" help:"The wanderer random seed."`
}

type spawnersConfig struct {
	Count            int           `cli:""        env:"QUADSPACE_SPAWNERS_COUNT"             help:"The number of spawners."`
	CameraWidth      float64       `cli:",hidden" env:"QUADSPACE_SPAWNERS_CAMERA_WIDTH"      help:"The width of the camera view."`
	CameraHeight     float64       `cli:",hidden" env:"QUADSPACE_SPAWNERS_CAMERA_HEIGHT"     help:"The height of the camera view."`
	CameraSpeed      float64       `cli:",hidden" env:"QUADSPACE_SPAWNERS_CAMERA_SPEED"      help:"The camera speed in world units per second."`
	ActivationMargin float64       `cli:",hidden" env:"QUADSPACE_SPAWNERS_ACTIVATION_MARGIN" help:"How far the activation ring extends around the camera view."`
	UpdateInterval   time.Duration `cli:",hidden" env:"QUADSPACE_SPAWNERS_UPDATE_INTERVAL"   help:"The interval between two spawner selections."`
	MobLifetime      time.Duration `cli:",hidden" env:"QUADSPACE_SPAWNERS_MOB_LIFETIME"      help:"How long a spawned mob lives."`
	Seed             uint64        `cli:",hidden" env:"QUADSPACE_SPAWNERS_SEED"              help:"The spawner random seed."`
}

func main() {
	conf := config{
		Addr:               ":4000",
		AdminAddr:          ":18190",
		PublicEndpoint:     "http://localhost:4000",
		LogLevel:           logs.InfoLevel.String(),
		ClientIdleTimeout:  time.Minute * 5,
		ClientMaxEntities:  1000,
		FrameDuration:      time.Millisecond * 15,
		LogSummaryInterval: time.Minute,
		ShutdownTimeout:    time.Second * 10,
		World: worldConfig{
			Width:       1000,
			Height:      1000,
			MaxElements: quadtree.DefaultMaxElements,
			MaxDepth:    quadtree.DefaultMaxDepth,
		},
		Wanderers: wanderersConfig{
			Count: 200,
			Speed: 20,
			Seed:  1,
		},
		Spawners: spawnersConfig{
			Count:            100,
			CameraWidth:      200,
			CameraHeight:     120,
			CameraSpeed:      30,
			ActivationMargin: 50,
			UpdateInterval:   time.Millisecond * 200,
			MobLifetime:      time.Second * 10,
			Seed:             2,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts Quadspace server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	featureFlags := featureflag.New(conf.FeatureFlags)
	if unknown := featureFlags.Unknown(); len(unknown) != 0 {
		logs.WithTag("feature_flags", unknown).
			Warn(errors.New("unknown feature flags"))
	}

	world, err := models.NewWorld(
		quadtree.NewRect(conf.World.MinX, conf.World.MinY, conf.World.Width, conf.World.Height),
		conf.FrameDuration,
		quadtree.WithName("world"),
		quadtree.WithMaxElements(conf.World.MaxElements),
		quadtree.WithMaxDepth(conf.World.MaxDepth),
		quadtree.WithInvariantChecks(featureFlags.IsSet(featureflag.FlagQuadtreeInvariantChecks)),
	)
	if err != nil {
		logs.Fatal(errors.New("creating world failed").Wrap(err))
	}
	defer world.Close()

	detachModules, err := modules.Attach(world, newModules(conf, featureFlags)...)
	if err != nil {
		logs.Fatal(errors.New("attaching modules failed").Wrap(err))
	}
	defer detachModules()

	go world.StartDispatchFrames()

	readinessCheck := func() bool {
		return ctx.Err() == nil
	}

	var service http.ServeMux
	service.Handle("/health", qhttp.HandleWithCORS(http.HandlerFunc(qhttp.HandleHealthCheck)))
	service.Handle("/ready", qhttp.HandleWithCORS(qhttp.HandleReadyCheck(readinessCheck)))
	service.Handle("/version", qhttp.HandleWithCORS(qhttp.HandleVersion(version)))
	service.Handle("/query", qhttp.HandleWithCORS(qhttp.HandleQuery(world)))
	service.Handle("/debug/nodes", qhttp.HandleWithCORS(qhttp.HandleNodes(world)))

	service.Handle("/watch", websocket.Server{
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			var h qwebsocket.Handler = &qwebsocket.WatchHandler{
				ClientIdleTimeout: conf.ClientIdleTimeout,
				World:             world,
				MaxEntities:       conf.ClientMaxEntities,
				FeatureFlags:      featureFlags,
			}
			h = qwebsocket.HandlerWithLogs(h, conf.LogSummaryInterval)
			h = qwebsocket.HandlerWithMetrics(h, conf.PublicEndpoint)
			defer h.Close()

			qwebsocket.Handle(ctx, conn, h)
		},
	})

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", qhttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.HandleFunc("/ready", qhttp.HandleReadyCheck(readinessCheck))
	admin.HandleFunc("/smoke-test", smoketest.HandleSmokeTest(smoketest.Options{
		Endpoint:  watchEndpoint(conf.PublicEndpoint),
		UserAgent: fmt.Sprintf("Quadspace %s", version),
		Viewport:  world.Bounds(),
	}))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("endpoint", conf.PublicEndpoint).
		WithTag("world_uuid", world.UUID).
		WithTag("world_bounds", world.Bounds()).
		Info("starting quadspace server")

	qhttp.ListenAndServe(ctx, conf.ShutdownTimeout,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			qhttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
}

func newModules(conf config, featureFlags featureflag.FeatureFlag) []modules.Module {
	var mods []modules.Module

	featureFlags.IfNotSet(featureflag.FlagDisableWanderModule, func() {
		mods = append(mods, &wander.Module{
			Count: conf.Wanderers.Count,
			Speed: conf.Wanderers.Speed,
			Seed:  conf.Wanderers.Seed,
		})
	})

	featureFlags.IfNotSet(featureflag.FlagDisableSpawnerModule, func() {
		mods = append(mods, &spawner.Module{
			Count: conf.Spawners.Count,
			CameraSize: quadtree.Vector2f{
				X: conf.Spawners.CameraWidth,
				Y: conf.Spawners.CameraHeight,
			},
			CameraVelocity: quadtree.Vector2f{
				X: conf.Spawners.CameraSpeed,
				Y: conf.Spawners.CameraSpeed / 2,
			},
			ActivationMargin: conf.Spawners.ActivationMargin,
			UpdateInterval:   conf.Spawners.UpdateInterval,
			MobLifetime:      conf.Spawners.MobLifetime,
			Seed:             conf.Spawners.Seed,
		})
	})

	return mods
}

// watchEndpoint returns the websocket url of the /watch endpoint served at
// the given public endpoint.
func watchEndpoint(publicEndpoint string) string {
	endpoint := strings.TrimSuffix(publicEndpoint, "/") + "/watch"
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		return "ws://" + strings.TrimPrefix(endpoint, "http://")
	default:
		return endpoint
	}
}

func validateConfig(conf config) error {
	if _, err := url.ParseRequestURI(conf.PublicEndpoint); err != nil {
		return errors.New("invalid public endpoint").Wrap(err)
	}

	if !(conf.World.Width > 0) || !(conf.World.Height > 0) {
		return errors.New("world is empty").
			WithTag("width", conf.World.Width).
			WithTag("height", conf.World.Height)
	}

	if conf.World.MaxElements <= 0 {
		return errors.New("world max elements must be positive").
			WithTag("max_elements", conf.World.MaxElements)
	}

	if conf.World.MaxDepth < 0 {
		return errors.New("world max depth is negative").
			WithTag("max_depth", conf.World.MaxDepth)
	}

	if conf.FrameDuration <= 0 {
		return errors.New("frame duration must be positive").
			WithTag("frame_duration", conf.FrameDuration)
	}

	return nil
}
