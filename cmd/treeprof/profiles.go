package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"github.com/treeprof/treeprof/internal/calltree"
	"github.com/treeprof/treeprof/internal/chrometrace"
	"github.com/treeprof/treeprof/internal/errorutil"
	"github.com/treeprof/treeprof/internal/httputil"
	"github.com/treeprof/treeprof/internal/pprofile"
	"github.com/treeprof/treeprof/internal/replay"
	"github.com/treeprof/treeprof/internal/speedscope"
	"github.com/treeprof/treeprof/internal/storageutil"
	"github.com/treeprof/treeprof/internal/treeprint"
)

func (env *environment) getLogProfiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)
	ps := httprouter.ParamsFromContext(ctx)

	logID := ps.ByName("log_id")
	if _, err := uuid.Parse(logID); err != nil {
		log.Err(err).Str("log_id", logID).Msg("profiles: log_id path parameter is malformed and cannot be parsed")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	params, logger, ok := httputil.GetRequiredQueryParameters(w, r, "format")
	if !ok {
		return
	}
	logger = logger.With().Str("log_id", logID).Logger()

	var l replay.Log
	s := sentry.StartSpan(ctx, "blob.read")
	s.Description = "Read event log from blob storage"
	err := storageutil.UnmarshalCompressed(ctx, env.storage, logStoragePath(logID), &l)
	s.Finish()
	if err != nil {
		if errors.Is(err, storageutil.ErrObjectNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		logger.Err(err).Msg("profiles: error reading the event log")
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if err := l.Validate(); err != nil {
		err = fmt.Errorf("profiles: %w: stored event log failed validation", errorutil.ErrDataIntegrity)
		logger.Err(err).Msg("profiles: error validating the event log")
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	vm, err := replay.NewVM(l)
	if err != nil {
		logger.Err(err).Msg("profiles: error setting up the replay")
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s = sentry.StartSpan(ctx, "replay")
	s.Description = "Replay event log"
	profiles, err := vm.Run()
	s.Finish()
	if err != nil {
		logger.Err(err).Msg("profiles: error replaying the event log")
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if len(profiles) == 0 {
		logger.Warn().Msg("profiles: no profiles were recorded in this event log")
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch params["format"] {
	case "calltree":
		s = sentry.StartSpan(ctx, "json.marshal")
		s.Description = "Marshal call trees"
		b, err := gojson.Marshal(calltree.FromProfiles(profiles))
		s.Finish()
		if err != nil {
			logger.Err(err).Msg("profiles: error marshaling the call trees")
			hub.CaptureException(err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := treeprint.Write(w, profiles); err != nil {
			logger.Err(err).Msg("profiles: error writing the call trees")
			hub.CaptureException(err)
		}
	case "speedscope":
		s = sentry.StartSpan(ctx, "json.marshal")
		s.Description = "Marshal speedscope output"
		b, err := gojson.Marshal(speedscope.FromProfiles(l.ProfileGroup, profiles))
		s.Finish()
		if err != nil {
			logger.Err(err).Msg("profiles: error marshaling the speedscope output")
			hub.CaptureException(err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
	case "chrometrace":
		s = sentry.StartSpan(ctx, "json.marshal")
		s.Description = "Marshal chrometrace output"
		b, err := gojson.Marshal(chrometrace.FromProfiles(l.ProfileGroup, profiles))
		s.Finish()
		if err != nil {
			logger.Err(err).Msg("profiles: error marshaling the chrometrace output")
			hub.CaptureException(err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
	case "pprof":
		w.Header().Set("Content-Type", "application/octet-stream")
		if err := pprofile.FromProfiles(profiles).Write(w); err != nil {
			logger.Err(err).Msg("profiles: error writing the pprof output")
			hub.CaptureException(err)
		}
	default:
		logger.Error().Msg("profiles: unknown format requested")
		w.WriteHeader(http.StatusBadRequest)
	}
}
