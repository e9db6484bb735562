package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"gocloud.dev/gcerrors"

	"github.com/treeprof/treeprof/internal/calltree"
	"github.com/treeprof/treeprof/internal/profile"
	"github.com/treeprof/treeprof/internal/replay"
	"github.com/treeprof/treeprof/internal/storageutil"
	"github.com/treeprof/treeprof/internal/timeutil"
)

type PostLogResponse struct {
	LogID     string                     `json:"log_id"`
	CallTrees map[uint32][]calltree.Node `json:"call_trees"`
}

func logStoragePath(logID string) string {
	return fmt.Sprintf("logs/%s", logID)
}

func (env *environment) postLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)

	s := sentry.StartSpan(ctx, "processing")
	s.Description = "Read HTTP body"
	body, err := io.ReadAll(r.Body)
	s.Finish()
	if err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var l replay.Log
	s = sentry.StartSpan(ctx, "json.unmarshal")
	s.Description = "Unmarshal event log"
	err = gojson.Unmarshal(body, &l)
	s.Finish()
	if err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := l.Validate(); err != nil {
		log.Err(err).Msg("log: event log failed validation")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if l.RecordedAt.Time().IsZero() {
		l.RecordedAt = timeutil.Time(time.Now().UTC())
	}

	vm, err := replay.NewVM(l)
	if err != nil {
		log.Err(err).Msg("log: error setting up the replay")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s = sentry.StartSpan(ctx, "replay")
	s.Description = "Replay event log"
	profiles, err := vm.Run()
	s.Finish()
	if err != nil {
		log.Err(err).Msg("log: event log cannot be replayed")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	logID := uuid.New().String()

	hub.Scope().SetContext("Event log metadata", map[string]interface{}{
		"log_id":        logID,
		"profile_group": l.ProfileGroup,
		"events":        len(l.Events),
		"size":          len(body),
	})

	s = sentry.StartSpan(ctx, "blob.write")
	s.Description = "Write event log to blob storage"
	err = storageutil.CompressedWrite(ctx, env.storage, logStoragePath(logID), &l)
	s.Finish()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// This is a transient error, we'll retry
			w.WriteHeader(http.StatusTooManyRequests)
		} else {
			// These errors won't be retried
			hub.CaptureException(err)
			if code := gcerrors.Code(err); code == gcerrors.FailedPrecondition {
				w.WriteHeader(http.StatusPreconditionFailed)
			} else {
				w.WriteHeader(http.StatusInternalServerError)
			}
		}
		return
	}

	s = sentry.StartSpan(ctx, "json.marshal")
	s.Description = "Marshal log Kafka message"
	message, err := gojson.Marshal(buildLogKafkaMessage(logID, &l, profiles))
	s.Finish()
	if err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	s = sentry.StartSpan(ctx, "processing")
	s.Description = "Send log notification to Kafka"
	err = env.logsWriter.WriteMessages(ctx, kafka.Message{
		Topic: env.config.LogsKafkaTopic,
		Value: message,
	})
	s.Finish()
	if err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s = sentry.StartSpan(ctx, "calltree")
	s.Description = "Generate call trees"
	callTrees := calltree.FromProfiles(profiles)
	s.Finish()

	s = sentry.StartSpan(ctx, "json.marshal")
	s.Description = "Marshal ingestion response"
	b, err := gojson.Marshal(PostLogResponse{
		LogID:     logID,
		CallTrees: callTrees,
	})
	s.Finish()
	if err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}

type (
	LogKafkaMessage struct {
		LogID        string        `json:"log_id"`
		ProfileGroup uint64        `json:"profile_group"`
		RecordedAt   timeutil.Time `json:"recorded_at"`
		Events       int           `json:"events"`
		Profiles     int           `json:"profiles"`
	}
)

func buildLogKafkaMessage(logID string, l *replay.Log, profiles []*profile.Profile) *LogKafkaMessage {
	return &LogKafkaMessage{
		LogID:        logID,
		ProfileGroup: l.ProfileGroup,
		RecordedAt:   l.RecordedAt,
		Events:       len(l.Events),
		Profiles:     len(profiles),
	}
}

func (env *environment) getLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)
	ps := httprouter.ParamsFromContext(ctx)

	logID := ps.ByName("log_id")
	if _, err := uuid.Parse(logID); err != nil {
		log.Err(err).Str("log_id", logID).Msg("log: log_id path parameter is malformed and cannot be parsed")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	logger := log.With().Str("log_id", logID).Logger()

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
		logger.Err(err).Msg("log: error reading the event log")
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s = sentry.StartSpan(ctx, "json.marshal")
	s.Description = "Marshal event log"
	b, err := gojson.Marshal(l)
	s.Finish()
	if err != nil {
		logger.Err(err).Msg("log: error marshaling the event log to json")
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}
