package spawner

import (
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/quadspace/models"
	"github.com/aukilabs/quadspace/quadtree"
)

const (
	defaultUpdateInterval = time.Millisecond * 200
)

// Module places static spawners in the world and activates the ones lying
// in a ring around a camera that pans across the world. An active spawner
// spawns a mob when it has none alive, so mobs appear just outside of the
// camera view.
type Module struct {
	// The number of spawners placed at random positions. Ignored when
	// Positions is set.
	Count int

	// The spawner positions. Init fails with a quadtree OutOfBounds error when
	// one lies outside of the world. Random positions are always inside.
	Positions []quadtree.Vector2f

	// The size of the camera view.
	CameraSize quadtree.Vector2f

	// The camera velocity, in world units per second. The camera bounces on
	// the world edges.
	CameraVelocity quadtree.Vector2f

	// How far the activation ring extends around the camera view.
	ActivationMargin float64

	// The interval between two spawner selections. Defaults to 200ms. A
	// negative value selects spawners on every frame.
	UpdateInterval time.Duration

	// How long a mob lives. Mobs live until the module is closed when zero.
	MobLifetime time.Duration

	// The seed of the random spawner positions.
	Seed uint64

	// The state observed by viewers.
	State State

	world          *models.World
	mutex          sync.Mutex
	tree           *quadtree.Quadtree[uint32]
	spawners       map[uint32]*spawner
	selected       []uint32
	camera         quadtree.Rect
	cameraVelocity quadtree.Vector2f
	updateTimer    time.Duration
	elapsed        time.Duration
	disabled       bool
}

type spawner struct {
	entity    *models.Entity
	mob       *models.Entity
	mobBornAt time.Duration
}

func (m *Module) Name() string {
	return "spawner"
}

func (m *Module) Init(w *models.World) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	bounds := w.Bounds()
	tree, err := quadtree.New[uint32](bounds, quadtree.WithName(m.Name()))
	if err != nil {
		return errors.New("creating spawner index failed").Wrap(err)
	}

	m.world = w
	m.tree = tree
	m.spawners = make(map[uint32]*spawner)
	m.cameraVelocity = m.CameraVelocity
	if m.UpdateInterval == 0 {
		m.UpdateInterval = defaultUpdateInterval
	}

	positions := m.Positions
	if len(positions) == 0 {
		rnd := rand.New(rand.NewPCG(m.Seed, uint64(m.Count)))
		for i := 0; i < m.Count; i++ {
			positions = append(positions, bounds.ClampInside(quadtree.Vector2f{
				X: bounds.Min.X + rnd.Float64()*bounds.Width(),
				Y: bounds.Min.Y + rnd.Float64()*bounds.Height(),
			}))
		}
	}

	for _, p := range positions {
		if _, err := m.register(p); err != nil {
			m.removeAll()
			return err
		}
	}

	size := quadtree.Vector2f{
		X: quadtree.Clamp(m.CameraSize.X, 0, bounds.Width()),
		Y: quadtree.Clamp(m.CameraSize.Y, 0, bounds.Height()),
	}
	origin := quadtree.Sub(bounds.Center(), quadtree.Mul(size, 0.5))
	m.camera = quadtree.Rect{Min: origin, Max: quadtree.Add(origin, size)}
	m.State.set(m.camera, Ring(m.camera, m.camera.Expand(m.ActivationMargin)), nil)

	logs.WithTag("count", len(m.spawners)).
		WithTag("camera", m.camera).
		Info("spawners placed")
	return nil
}

func (m *Module) HandleFrame(f models.Frame) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.disabled {
		return
	}

	m.elapsed += f.Delta
	m.moveCamera(f.Delta.Seconds())
	m.expireMobs()

	m.updateTimer += f.Delta
	if m.updateTimer < m.UpdateInterval {
		return
	}
	m.updateTimer = 0

	ring := Ring(m.camera, m.camera.Expand(m.ActivationMargin))
	m.selected = m.selected[:0]
	for _, r := range ring {
		m.selected = m.tree.QueryInto(r, m.selected)
	}

	for _, id := range m.selected {
		m.checkRespawn(m.spawners[id])
	}

	m.State.set(m.camera, ring, m.selected)
	spawnerActiveCount.Set(float64(len(m.selected)))
}

func (m *Module) Close() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.removeAll()
}

// Register places a spawner at p and returns its entity id. The spawner takes
// part in the next selection.
func (m *Module) Register(p quadtree.Vector2f) (uint32, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.world == nil {
		return 0, errors.New("spawner module is not initialized")
	}
	return m.register(p)
}

// Unregister removes the spawner with the given id and its mob.
func (m *Module) Unregister(id uint32) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s, ok := m.spawners[id]
	if !ok {
		return errors.New("spawner not found").
			WithType(quadtree.ErrTypeNotFound).
			WithTag("spawner_id", id)
	}

	if err := m.tree.Remove(id); err != nil {
		return errors.New("unindexing spawner failed").
			WithType(errors.Type(err)).
			WithTag("spawner_id", id).
			Wrap(err)
	}

	if s.mob != nil {
		m.removeEntity(s.mob.ID)
	}
	m.removeEntity(id)
	delete(m.spawners, id)

	if i := slices.Index(m.selected, id); i >= 0 {
		m.selected = slices.Delete(m.selected, i, i+1)
		m.State.set(m.camera, m.State.Ring(), m.selected)
		spawnerActiveCount.Set(float64(len(m.selected)))
	}
	return nil
}

// Enable resumes spawner selection.
func (m *Module) Enable() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.disabled = false
}

// Disable stops spawner selection, removes every live mob and clears the
// active spawners. Spawners stay registered.
func (m *Module) Disable() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.disabled = true
	for _, s := range m.spawners {
		if s.mob != nil {
			m.removeEntity(s.mob.ID)
			s.mob = nil
		}
	}

	m.selected = m.selected[:0]
	m.updateTimer = 0
	m.State.set(m.camera, m.State.Ring(), nil)
	spawnerActiveCount.Set(0)
}

// Enabled reports whether spawners are selected on frames.
func (m *Module) Enabled() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return !m.disabled
}

func (m *Module) register(p quadtree.Vector2f) (uint32, error) {
	e, err := m.world.AddEntity(models.KindSpawner, p)
	if err != nil {
		return 0, errors.New("placing spawner failed").
			WithType(errors.Type(err)).
			Wrap(err)
	}

	if err := m.tree.Insert(e.ID, p); err != nil {
		m.removeEntity(e.ID)
		return 0, errors.New("indexing spawner failed").
			WithType(errors.Type(err)).
			Wrap(err)
	}

	m.spawners[e.ID] = &spawner{entity: e}
	return e.ID, nil
}

func (m *Module) removeAll() {
	for id, s := range m.spawners {
		if s.mob != nil {
			m.removeEntity(s.mob.ID)
		}
		m.removeEntity(id)
		m.tree.Remove(id)
	}

	clear(m.spawners)
	m.selected = nil
	spawnerActiveCount.Set(0)
}

func (m *Module) moveCamera(dt float64) {
	bounds := m.world.Bounds()
	size := quadtree.Vector2f{X: m.camera.Width(), Y: m.camera.Height()}
	origin := quadtree.Add(m.camera.Min, quadtree.Mul(m.cameraVelocity, dt))

	if origin.X < bounds.Min.X {
		origin.X = bounds.Min.X
		m.cameraVelocity.X = -m.cameraVelocity.X
	} else if origin.X+size.X > bounds.Max.X {
		origin.X = bounds.Max.X - size.X
		m.cameraVelocity.X = -m.cameraVelocity.X
	}

	if origin.Y < bounds.Min.Y {
		origin.Y = bounds.Min.Y
		m.cameraVelocity.Y = -m.cameraVelocity.Y
	} else if origin.Y+size.Y > bounds.Max.Y {
		origin.Y = bounds.Max.Y - size.Y
		m.cameraVelocity.Y = -m.cameraVelocity.Y
	}

	m.camera = quadtree.Rect{Min: origin, Max: quadtree.Add(origin, size)}
}

func (m *Module) checkRespawn(s *spawner) {
	if s == nil || s.mob != nil {
		return
	}

	mob, err := m.world.AddEntity(models.KindMob, s.entity.Position())
	if err != nil {
		logs.WithTag("spawner_id", s.entity.ID).Warn(err)
		return
	}

	s.mob = mob
	s.mobBornAt = m.elapsed
	spawnerMobsTotal.Inc()
}

func (m *Module) expireMobs() {
	if m.MobLifetime <= 0 {
		return
	}

	for _, s := range m.spawners {
		if s.mob == nil || m.elapsed-s.mobBornAt < m.MobLifetime {
			continue
		}
		m.removeEntity(s.mob.ID)
		s.mob = nil
	}
}

func (m *Module) removeEntity(id uint32) {
	if err := m.world.RemoveEntity(id); err != nil {
		logs.WithTag("entity_id", id).Debug(err)
	}
}
