package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geocoin/internal/game"
	"geocoin/internal/grid"
	"geocoin/internal/store"
	"geocoin/internal/world"
)

var start = grid.GeoPoint{Lat: 36.98949379578401, Long: -122.06277128548504}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	o := world.DefaultOptions()
	o.Radius = 1
	o.SpawnProbability = 1
	svc := game.New(world.NewBoard(o), store.NewManager(store.NewMemoryKV(), ""), start, nil)
	require.NoError(t, svc.Start(context.Background()))
	srv := httptest.NewServer(BuildRoutes(svc))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	res, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, "no-store", res.Header.Get("cache-control"))
	if out != nil {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func TestRoutes_StateAndCells(t *testing.T) {
	srv := newServer(t)

	var st game.StateView
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/state", "", &st))
	assert.Equal(t, start, st.Location)
	assert.Equal(t, 9, st.ActiveCaches)

	var cells []game.CellView
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/cells", "", &cells))
	assert.Len(t, cells, 9)
}

func TestRoutes_MoveTeleportStep(t *testing.T) {
	srv := newServer(t)

	var st game.StateView
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/move", `{"lat":37,"long":-122}`, &st))
	assert.Equal(t, grid.GeoPoint{Lat: 37, Long: -122}, st.Location)
	assert.Len(t, st.Path, 1)

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/teleport", `{"lat":1.00005,"long":2.00005}`, &st))
	assert.Len(t, st.Path, 2)

	cell := st.Cell
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/step/north", "", &st))
	assert.Equal(t, cell.Offset(1, 0), st.Cell)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/step/sideways", "", nil))
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/move", `not json`, nil))
}

func TestRoutes_CollectAndDeposit(t *testing.T) {
	srv := newServer(t)

	var cells []game.CellView
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/cells", "", &cells))
	var target *game.CellView
	for k := range cells {
		if cells[k].Cache != nil && cells[k].Cache.Count > 0 {
			target = &cells[k]
			break
		}
	}
	require.NotNil(t, target)
	base := fmt.Sprintf("/caches/%d/%d", target.Cell.I, target.Cell.J)

	assert.Equal(t, http.StatusConflict, do(t, srv, http.MethodPost, base+"/deposit", "", nil))

	var res transferResult
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, base+"/collect", "", &res))
	assert.Equal(t, target.Cache.Tokens[len(target.Cache.Tokens)-1], res.Token)
	assert.Equal(t, 1, res.State.Holdings.Count)

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, base+"/deposit", "", &res))
	assert.Equal(t, 0, res.State.Holdings.Count)

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPost, "/caches/999999/0/collect", "", nil))
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/caches/x/0/collect", "", nil))
}

func TestRoutes_LocateWithoutSource(t *testing.T) {
	srv := newServer(t)
	assert.Equal(t, http.StatusNotImplemented, do(t, srv, http.MethodPost, "/locate", "", nil))
}

func TestRoutes_Reset(t *testing.T) {
	srv := newServer(t)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/teleport", `{"lat":1,"long":2}`, nil))

	var st game.StateView
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/reset", "", &st))
	assert.Equal(t, start, st.Location)
	assert.Len(t, st.Path, 1)
}
