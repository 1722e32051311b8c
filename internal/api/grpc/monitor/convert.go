package monitor

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/noise-monitor/internal/domain/monitor"
)

// ToProtoStatus converts a domain Snapshot to its Struct representation.
func ToProtoStatus(s domain.Snapshot) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"running":   structpb.NewBoolValue(s.Running),
		"alerting":  structpb.NewBoolValue(s.Alerting),
		"status":    structpb.NewStringValue(string(s.Status)),
		"level":     structpb.NewNumberValue(s.Level),
		"threshold": structpb.NewNumberValue(s.Threshold),
		"peak":      structpb.NewNumberValue(s.Peak),
	}

	if !s.EpisodeStarted.IsZero() {
		fields["episode_started"] = structpb.NewStringValue(s.EpisodeStarted.UTC().Format(time.RFC3339Nano))
	}

	return &structpb.Struct{Fields: fields}
}

// FromProtoStatus converts a Struct back to a domain Snapshot.
// Missing or mistyped fields take their zero values.
func FromProtoStatus(st *structpb.Struct) domain.Snapshot {
	fields := st.GetFields()

	s := domain.Snapshot{
		Running:   fields["running"].GetBoolValue(),
		Alerting:  fields["alerting"].GetBoolValue(),
		Status:    domain.Status(fields["status"].GetStringValue()),
		Level:     fields["level"].GetNumberValue(),
		Threshold: fields["threshold"].GetNumberValue(),
		Peak:      fields["peak"].GetNumberValue(),
	}

	if raw := fields["episode_started"].GetStringValue(); raw != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			s.EpisodeStarted = ts
		}
	}

	return s
}
