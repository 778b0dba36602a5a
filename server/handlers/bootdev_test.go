package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/baremetal/ipmi"
)

func postBootdev(h http.Handler, node, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/nodes/"+node+"/bootdev", strings.NewReader(body))
	return serve("POST /api/nodes/{node}/bootdev", h, req)
}

func TestBootDeviceHandler(t *testing.T) {
	p := newFakeProvider()
	h := NewBootDeviceHandler(discardLogger(), p)

	w := postBootdev(h, "node1", `{"device":"pxe"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp BootDeviceResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, BootDeviceResponse{Node: "node1", Device: "pxe"}, resp)
	assert.Equal(t, "pxe", p.nodes["node1"].bootDevice)
}

func TestBootDeviceHandler_Errors(t *testing.T) {
	tests := []struct {
		name     string
		node     string
		body     string
		nodeErr  error
		expected int
	}{
		{"malformed body", "node1", `{"device":`, nil, http.StatusBadRequest},
		{"empty device", "node1", `{"device":""}`, nil, http.StatusBadRequest},
		{"unknown node", "nope", `{"device":"disk"}`, nil, http.StatusNotFound},
		{"exec failed", "node1", `{"device":"disk"}`, fmt.Errorf("chassis bootdev disk: %w", ipmi.ErrExecFailed), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakeProvider()
			p.nodes["node1"].err = tt.nodeErr
			h := NewBootDeviceHandler(discardLogger(), p)

			w := postBootdev(h, tt.node, tt.body)
			assert.Equal(t, tt.expected, w.Code)
		})
	}
}
