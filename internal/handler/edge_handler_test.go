package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// edgePayload mirrors the denormalized edge response shape.
type edgePayload struct {
	ID       string  `json:"id"`
	EdgeType string  `json:"edge_type"`
	Weight   float64 `json:"weight"`
	Source   *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Target *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"target"`
}

func TestCreateEdge(t *testing.T) {
	e := setupTestServer(t)
	userID := newUserID()
	createWorkspace(t, e, userID, "Edges")

	manager := createEntity(t, e, userID, "person", "Maria")
	field := createEntity(t, e, userID, "location", "North Field")

	rec := doRequest(t, e, http.MethodPost, "/api/v1/edges", authToken(t, userID),
		map[string]interface{}{
			"source_id": manager.ID,
			"target_id": field.ID,
			"edge_type": "manages",
		})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())

	var edge edgePayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &edge))
	assert.Equal(t, "manages", edge.EdgeType)
	assert.Equal(t, 1.0, edge.Weight)
	require.NotNil(t, edge.Source)
	require.NotNil(t, edge.Target)
	assert.Equal(t, "Maria", edge.Source.Name)
	assert.Equal(t, "North Field", edge.Target.Name)
}

func TestCreateEdgeUnknownType(t *testing.T) {
	e := setupTestServer(t)
	userID := newUserID()
	createWorkspace(t, e, userID, "EdgeTypes")

	a := createEntity(t, e, userID, "person", "A")
	b := createEntity(t, e, userID, "person", "B")

	rec := doRequest(t, e, http.MethodPost, "/api/v1/edges", authToken(t, userID),
		map[string]interface{}{"source_id": a.ID, "target_id": b.ID, "edge_type": "teleports_to"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "teleports_to")
}

func TestCreateEdgeRejectsForeignEndpoints(t *testing.T) {
	e := setupTestServer(t)

	alice := newUserID()
	createWorkspace(t, e, alice, "Alice")
	aliceEntity := createEntity(t, e, alice, "person", "Ana")

	bob := newUserID()
	createWorkspace(t, e, bob, "Bob")
	bobEntity := createEntity(t, e, bob, "person", "Ben")

	// Cross-tenant endpoint is indistinguishable from a nonexistent one
	rec := doRequest(t, e, http.MethodPost, "/api/v1/edges", authToken(t, bob),
		map[string]interface{}{
			"source_id": bobEntity.ID,
			"target_id": aliceEntity.ID,
			"edge_type": "manages",
		})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateEdgeSelfLoop(t *testing.T) {
	e := setupTestServer(t)
	userID := newUserID()
	createWorkspace(t, e, userID, "Loops")

	process := createEntity(t, e, userID, "process", "Composting")

	rec := doRequest(t, e, http.MethodPost, "/api/v1/edges", authToken(t, userID),
		map[string]interface{}{
			"source_id": process.ID,
			"target_id": process.ID,
			"edge_type": "uses",
		})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
}

func TestListEdgesByEntity(t *testing.T) {
	e := setupTestServer(t)
	userID := newUserID()
	createWorkspace(t, e, userID, "Neighbourhood")

	barn := createEntity(t, e, userID, "location", "Barn")
	cow := createEntity(t, e, userID, "animal", "Bessie")
	tractor := createEntity(t, e, userID, "equipment", "Tractor")

	for _, body := range []map[string]interface{}{
		{"source_id": cow.ID, "target_id": barn.ID, "edge_type": "located_in"},
		{"source_id": tractor.ID, "target_id": barn.ID, "edge_type": "located_in"},
		{"source_id": cow.ID, "target_id": tractor.ID, "edge_type": "uses"},
	} {
		rec := doRequest(t, e, http.MethodPost, "/api/v1/edges", authToken(t, userID), body)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	var edges []edgePayload

	// Both directions count for the entity filter
	rec := doRequest(t, e, http.MethodGet, "/api/v1/edges?entity_id="+cow.ID, authToken(t, userID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &edges))
	assert.Len(t, edges, 2)

	rec = doRequest(t, e, http.MethodGet, "/api/v1/edges?edge_type=located_in", authToken(t, userID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &edges))
	assert.Len(t, edges, 2)

	// Same neighbourhood through the entity-scoped route
	rec = doRequest(t, e, http.MethodGet, "/api/v1/entities/"+barn.ID+"/edges", authToken(t, userID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &edges))
	require.Len(t, edges, 2)
	for _, edge := range edges {
		require.NotNil(t, edge.Target)
		assert.Equal(t, "Barn", edge.Target.Name)
	}
}

func TestListEntityEdgesUnknownEntity(t *testing.T) {
	e := setupTestServer(t)
	userID := newUserID()
	createWorkspace(t, e, userID, "Missing")

	rec := doRequest(t, e, http.MethodGet, "/api/v1/entities/"+newUserID()+"/edges", authToken(t, userID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteEdge(t *testing.T) {
	e := setupTestServer(t)
	userID := newUserID()
	createWorkspace(t, e, userID, "Deletion")

	a := createEntity(t, e, userID, "person", "A")
	b := createEntity(t, e, userID, "person", "B")

	rec := doRequest(t, e, http.MethodPost, "/api/v1/edges", authToken(t, userID),
		map[string]interface{}{"source_id": a.ID, "target_id": b.ID, "edge_type": "manages"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var edge edgePayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &edge))

	rec = doRequest(t, e, http.MethodDelete, "/api/v1/edges/"+edge.ID, authToken(t, userID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Hard delete: the edge is gone from every listing
	var edges []edgePayload
	rec = doRequest(t, e, http.MethodGet, "/api/v1/edges", authToken(t, userID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &edges))
	assert.Empty(t, edges)

	rec = doRequest(t, e, http.MethodDelete, "/api/v1/edges/"+edge.ID, authToken(t, userID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
