//
// Tencent is pleased to support the open source community by making trpc-artifact-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-artifact-go is licensed under the Apache License Version 2.0.
//
//

package preview

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-artifact-go/artifact"
	"trpc.group/trpc-go/trpc-artifact-go/pipeline"
	"trpc.group/trpc-go/trpc-artifact-go/validator"
)

const testMessage = "Here you go:\n" +
	"<artifact identifier=\"notes\" type=\"document\" title=\"Notes\">\n" +
	"# Notes\n\nSome *notes*.\n" +
	"</artifact>"

func newTestServer(t *testing.T) (*httptest.Server, *pipeline.Pipeline) {
	t.Helper()
	p := pipeline.New()
	ts := httptest.NewServer(New(p).Handler())
	t.Cleanup(ts.Close)
	return ts, p
}

func postMessage(t *testing.T, ts *httptest.Server, text string) pipeline.Output {
	t.Helper()
	body, err := json.Marshal(map[string]string{"text": text})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/api/v1/messages", "application/json", strings.NewReader(string(body)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out pipeline.Output
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestProcessMessageAndList(t *testing.T) {
	ts, _ := newTestServer(t)

	out := postMessage(t, ts, testMessage)
	require.Len(t, out.Artifacts, 1)
	assert.Equal(t, "Here you go:\n", out.CleanText)
	assert.Equal(t, artifact.KindDocument, out.Artifacts[0].Kind)

	resp, err := http.Get(ts.URL + "/api/v1/artifacts")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var records []*artifact.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	require.Len(t, records, 1)
	assert.Equal(t, out.Artifacts[0].ID, records[0].ID)
}

func TestGetArtifactAndStatus(t *testing.T) {
	ts, _ := newTestServer(t)
	out := postMessage(t, ts, testMessage)
	id := out.Artifacts[0].ID

	resp, err := http.Get(ts.URL + "/api/v1/artifacts/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var record artifact.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&record))
	assert.Equal(t, "Notes", record.Title)

	resp, err = http.Get(ts.URL + "/api/v1/artifacts/" + id + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, string(artifact.BundleIdle), status["status"])

	resp, err = http.Get(ts.URL + "/api/v1/artifacts/art-missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPreviewAndDocument(t *testing.T) {
	ts, _ := newTestServer(t)
	out := postMessage(t, ts, testMessage)
	id := out.Artifacts[0].ID

	resp, err := http.Get(ts.URL + "/api/v1/artifacts/" + id + "/preview")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	var config map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&config))
	assert.NotEmpty(t, config["template"])

	resp, err = http.Get(ts.URL + "/api/v1/artifacts/" + id + "/document")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestErrorMapping(t *testing.T) {
	ts, _ := newTestServer(t)

	// Unknown artifact → 404.
	resp, err := http.Get(ts.URL + "/api/v1/artifacts/art-missing/preview")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Still-streaming artifact → 409.
	postMessage(t, ts, "<artifact identifier=\"wip\" type=\"markup\" title=\"WIP\">\n<div>")
	resp, err = http.Get(ts.URL + "/api/v1/artifacts")
	require.NoError(t, err)
	var records []*artifact.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	resp.Body.Close()
	require.Len(t, records, 1)

	resp, err = http.Get(ts.URL + "/api/v1/artifacts/" + records[0].ID + "/preview")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestInvalidArtifactReturnsValidation(t *testing.T) {
	ts, _ := newTestServer(t)
	out := postMessage(t, ts, "<artifact identifier=\"bad\" type=\"markup\" title=\"Bad\">\n<div><span></div>\n</artifact>")
	id := out.Artifacts[0].ID

	resp, err := http.Get(ts.URL + "/api/v1/artifacts/" + id + "/preview")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var payload struct {
		Error      string            `json:"error"`
		Validation *validator.Result `json:"validation"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.NotNil(t, payload.Validation)
	assert.False(t, payload.Validation.IsValid)
	require.Len(t, payload.Validation.Errors, 1)
	assert.Equal(t, validator.ErrorStructure, payload.Validation.Errors[0].Kind)
}

func TestBadRequestBody(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Post(ts.URL+"/api/v1/messages", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
