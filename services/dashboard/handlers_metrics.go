package dashboard

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"agentdash/pkg/platform"
)

// inputLayouts are the layouts a datetime-local field submits.
var inputLayouts = []string{"2006-01-02T15:04", "2006-01-02T15:04:05"}

type metricsPage struct {
	Query      platform.MetricQuery
	StartInput string
	EndInput   string
	Metrics    []platform.Metric
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := metricsPage{
		Query: platform.MetricQuery{
			AgentID: strings.TrimSpace(q.Get("agent_id")),
			Name:    strings.TrimSpace(q.Get("name")),
		},
		Metrics: []platform.Metric{},
	}
	page := newPage(Route{Path: "/metrics"}, "Metrics", nil)

	var err error
	if data.Query.Start, err = parseTimeInput(q.Get("start_time"), s.loc); err != nil {
		page.Error = "Invalid start time: " + err.Error()
	} else if data.Query.End, err = parseTimeInput(q.Get("end_time"), s.loc); err != nil {
		page.Error = "Invalid end time: " + err.Error()
	} else if !data.Query.Start.IsZero() && !data.Query.End.IsZero() && data.Query.End.Before(data.Query.Start) {
		page.Error = "End time is before start time"
	}
	data.StartInput = formatTimeInput(data.Query.Start, s.loc)
	data.EndInput = formatTimeInput(data.Query.End, s.loc)

	if page.Error != "" {
		page.Data = data
		s.renderPage(w, http.StatusBadRequest, "metrics", page)
		return
	}

	status := http.StatusOK
	metrics, err := s.platform.QueryMetrics(r.Context(), data.Query)
	if err != nil {
		s.log.Warn().Err(err).Msg("query metrics")
		page.Error = "Failed to load metrics"
		status = http.StatusBadGateway
	} else {
		data.Metrics = metrics
	}
	page.Data = data
	s.renderPage(w, status, "metrics", page)
}

// parseTimeInput accepts RFC 3339 or a datetime-local value interpreted in loc.
func parseTimeInput(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range inputLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a date and time", raw)
}

func formatTimeInput(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(inputLayouts[0])
}
