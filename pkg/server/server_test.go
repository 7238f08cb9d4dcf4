// Copyright 2026 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/ButtonWorker/model"
	"github.com/binkynet/ButtonWorker/pkg/service"
	"github.com/binkynet/ButtonWorker/pkg/service/bridge"
	"github.com/binkynet/ButtonWorker/pkg/service/controller"
)

type fakeService struct {
	pressed  []int
	pressErr error
}

func (s *fakeService) Status() service.Status {
	return service.Status{
		ProgramVersion: "1.2.3",
		Ready:          true,
		Controller: controller.Status{
			Variant:       model.VariantTimers,
			AccumulatorMs: 2000,
		},
	}
}

func (s *fakeService) PressButton(index int) error {
	if s.pressErr != nil {
		return s.pressErr
	}
	s.pressed = append(s.pressed, index)
	return nil
}

func newTestServer(t *testing.T, svc Service) *Server {
	s, err := New(Config{}, zerolog.Nop(), nil, svc)
	require.NoError(t, err)
	return s
}

func serve(s *Server, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.newRouter().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestGetStatus(t *testing.T) {
	s := newTestServer(t, &fakeService{})
	rec := serve(s, http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var st service.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "1.2.3", st.ProgramVersion)
	assert.Equal(t, model.VariantTimers, st.Controller.Variant)
	assert.Equal(t, uint32(2000), st.Controller.AccumulatorMs)
}

func TestPressButton(t *testing.T) {
	svc := &fakeService{}
	s := newTestServer(t, svc)
	assert.Equal(t, http.StatusAccepted, serve(s, http.MethodPost, "/api/buttons/1/press").Code)
	assert.Equal(t, http.StatusAccepted, serve(s, http.MethodPost, "/api/buttons/4/press").Code)
	assert.Equal(t, []int{0, 3}, svc.pressed)

	assert.Equal(t, http.StatusBadRequest, serve(s, http.MethodPost, "/api/buttons/0/press").Code)
	assert.Equal(t, http.StatusBadRequest, serve(s, http.MethodPost, "/api/buttons/5/press").Code)
	assert.Equal(t, http.StatusBadRequest, serve(s, http.MethodPost, "/api/buttons/x/press").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(s, http.MethodGet, "/api/buttons/1/press").Code)
	assert.Len(t, svc.pressed, 2)
}

func TestPressButtonErrors(t *testing.T) {
	svc := &fakeService{pressErr: errors.Wrap(bridge.InvalidStateError, "not ready")}
	s := newTestServer(t, svc)
	assert.Equal(t, http.StatusConflict, serve(s, http.MethodPost, "/api/buttons/2/press").Code)

	svc.pressErr = errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, serve(s, http.MethodPost, "/api/buttons/2/press").Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, &fakeService{})
	rec := serve(s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK\n", rec.Body.String())
	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/metrics").Code)
}
