package wander

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/quadspace/models"
	"github.com/aukilabs/quadspace/quadtree"
)

// Module spawns entities moving in straight lines that bounce on the world
// edges.
type Module struct {
	// The number of wanderers to spawn.
	Count int

	// The wanderer speed, in world units per second.
	Speed float64

	// The seed of the random positions and directions.
	Seed uint64

	world     *models.World
	mutex     sync.Mutex
	wanderers []*wanderer
}

type wanderer struct {
	entity   *models.Entity
	velocity quadtree.Vector2f
}

func (m *Module) Name() string {
	return "wander"
}

func (m *Module) Init(w *models.World) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.world = w
	bounds := w.Bounds()
	rnd := rand.New(rand.NewPCG(m.Seed, uint64(m.Count)))

	for i := 0; i < m.Count; i++ {
		p := quadtree.Vector2f{
			X: bounds.Min.X + rnd.Float64()*bounds.Width(),
			Y: bounds.Min.Y + rnd.Float64()*bounds.Height(),
		}

		e, err := w.AddEntity(models.KindWanderer, bounds.ClampInside(p))
		if err != nil {
			m.removeWanderers()
			return errors.New("spawning wanderer failed").
				WithType(errors.Type(err)).
				Wrap(err)
		}

		angle := rnd.Float64() * 2 * math.Pi
		m.wanderers = append(m.wanderers, &wanderer{
			entity:   e,
			velocity: quadtree.Vector2f{X: math.Cos(angle) * m.Speed, Y: math.Sin(angle) * m.Speed},
		})
	}

	logs.WithTag("count", m.Count).
		WithTag("speed", m.Speed).
		Info("wanderers spawned")
	return nil
}

func (m *Module) HandleFrame(f models.Frame) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	dt := f.Delta.Seconds()
	bounds := m.world.Bounds()

	for _, w := range m.wanderers {
		next := quadtree.Add(w.entity.Position(), quadtree.Mul(w.velocity, dt))

		err := m.world.MoveEntity(w.entity.ID, next)
		if err == nil {
			continue
		}
		if !quadtree.IsOutOfBounds(err) {
			logs.WithTag("entity_id", w.entity.ID).Warn(err)
			continue
		}

		w.velocity = bounce(bounds, next, w.velocity)
		wanderBounces.Inc()

		if err := m.world.MoveEntity(w.entity.ID, bounds.ClampInside(next)); err != nil {
			logs.WithTag("entity_id", w.entity.ID).Warn(err)
		}
	}
}

func (m *Module) Close() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.removeWanderers()
}

func (m *Module) removeWanderers() {
	for _, w := range m.wanderers {
		if err := m.world.RemoveEntity(w.entity.ID); err != nil {
			logs.WithTag("entity_id", w.entity.ID).Debug(err)
		}
	}
	m.wanderers = nil
}

// bounce reflects the velocity components that made p leave bounds.
func bounce(bounds quadtree.Rect, p, velocity quadtree.Vector2f) quadtree.Vector2f {
	if p.X < bounds.Min.X || p.X >= bounds.Max.X {
		velocity.X = -velocity.X
	}
	if p.Y < bounds.Min.Y || p.Y >= bounds.Max.Y {
		velocity.Y = -velocity.Y
	}
	return velocity
}
