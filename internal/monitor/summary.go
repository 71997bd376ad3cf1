package monitor

import (
	"sort"

	"edumonitor/internal/models"
)

const networkErrorMsg = "Network Error"

// Summarize projects a report onto every endpoint, in registry order.
// On a network error every site is reported as failed with the same message.
func Summarize(report models.Report, endpoints []models.Endpoint) []models.SiteStatus {
	failed := make(map[string]models.ProbeOutcome, len(report.Failures))
	for _, f := range report.Failures {
		failed[f.Name] = f
	}

	out := make([]models.SiteStatus, 0, len(endpoints))
	for _, ep := range endpoints {
		status := models.SiteStatus{Name: ep.Name, URL: ep.URL, Status: models.SiteStatusOK, Msg: "OK"}
		if report.NetworkError {
			status.Status = models.SiteStatusError
			status.Msg = networkErrorMsg
		} else if f, ok := failed[ep.Name]; ok {
			status.Status = models.SiteStatusError
			status.Msg = f.Message()
		}
		out = append(out, status)
	}
	return out
}

// SortFailures orders failures by name for callers that need a stable order.
func SortFailures(failures []models.ProbeOutcome) {
	sort.SliceStable(failures, func(i, j int) bool {
		return failures[i].Name < failures[j].Name
	})
}
