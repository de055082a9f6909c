package http

import (
	"cmp"
	"math"
	"net/http"
	"slices"
	"strconv"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/quadspace/models"
	"github.com/aukilabs/quadspace/quadtree"
	"github.com/segmentio/encoding/json"
)

const (
	ErrTypeInvalidQuery = "invalid_query"
)

// WorldReader is the read side of a world exposed over HTTP.
type WorldReader interface {
	QueryRect(quadtree.Rect) []*models.Entity
	QueryCircle(quadtree.Vector2f, float64) []*models.Entity
	Nodes() []quadtree.NodeInfo
	DebugInfo() quadtree.DebugInfo
}

// QueryResponse is the response of a world query.
type QueryResponse struct {
	Count    int                  `json:"count"`
	Entities []models.EntityState `json:"entities"`
}

// NodesResponse describes the world index.
type NodesResponse struct {
	Info  quadtree.DebugInfo  `json:"info"`
	Nodes []quadtree.NodeInfo `json:"nodes"`
}

func HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func HandleReadyCheck(readinessCheck func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !readinessCheck() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func HandleVersion(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(version))
	}
}

// HandleQuery returns the entities inside a rectangle given by the x, y, w
// and h query parameters, or inside the circle centered on (x, y) when a
// radius r is given.
func HandleQuery(world WorldReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var entities []*models.Entity

		switch query := r.URL.Query(); {
		case query.Has("r"):
			values, err := parseFloats(query.Get, "x", "y", "r")
			if err != nil {
				writeError(w, r, http.StatusBadRequest, err)
				return
			}
			if values[2] < 0 {
				writeError(w, r, http.StatusBadRequest, errors.New("radius is negative").
					WithType(ErrTypeInvalidQuery).
					WithTag("r", values[2]))
				return
			}
			entities = world.QueryCircle(quadtree.Vector2f{X: values[0], Y: values[1]}, values[2])

		default:
			values, err := parseFloats(query.Get, "x", "y", "w", "h")
			if err != nil {
				writeError(w, r, http.StatusBadRequest, err)
				return
			}
			if values[2] < 0 || values[3] < 0 {
				writeError(w, r, http.StatusBadRequest, errors.New("rectangle size is negative").
					WithType(ErrTypeInvalidQuery).
					WithTag("w", values[2]).
					WithTag("h", values[3]))
				return
			}
			entities = world.QueryRect(quadtree.NewRect(values[0], values[1], values[2], values[3]))
		}

		states := models.EntitiesToStates(entities)
		slices.SortFunc(states, func(a, b models.EntityState) int {
			return cmp.Compare(a.ID, b.ID)
		})

		writeJSON(w, r, http.StatusOK, QueryResponse{
			Count:    len(states),
			Entities: states,
		})
	}
}

// HandleNodes returns the nodes of the world index with its debug info.
func HandleNodes(world WorldReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, NodesResponse{
			Info:  world.DebugInfo(),
			Nodes: world.Nodes(),
		})
	}
}

func parseFloats(get func(string) string, keys ...string) ([]float64, error) {
	values := make([]float64, len(keys))

	for i, k := range keys {
		v, err := strconv.ParseFloat(get(k), 64)
		if err != nil {
			return nil, errors.New("invalid query parameter").
				WithType(ErrTypeInvalidQuery).
				WithTag("key", k).
				Wrap(err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New("query parameter is not finite").
				WithType(ErrTypeInvalidQuery).
				WithTag("key", k)
		}
		values[i] = v
	}
	return values, nil
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logs.WithTag("path", r.URL.Path).Error(errors.New("encoding response failed").Wrap(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	logs.WithTag("path", r.URL.Path).
		WithTag("query", r.URL.RawQuery).
		Debug(err)

	writeJSON(w, r, status, map[string]string{
		"type":  errors.Type(err),
		"error": err.Error(),
	})
}
