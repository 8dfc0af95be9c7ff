package server

import "time"

// GrafanaAlert is a single firing or resolved alert inside a Grafana webhook
// notification.
type GrafanaAlert struct {
	Status       string             `json:"status"`
	Labels       map[string]string  `json:"labels"`
	Annotations  map[string]string  `json:"annotations"`
	StartsAt     time.Time          `json:"startsAt"`
	EndsAt       time.Time          `json:"endsAt"`
	GeneratorURL string             `json:"generatorURL"`
	Fingerprint  string             `json:"fingerprint"`
	SilenceURL   string             `json:"silenceURL"`
	DashboardURL string             `json:"dashboardURL,omitempty"`
	PanelURL     string             `json:"panelURL,omitempty"`
	Values       map[string]float64 `json:"values,omitempty"`
	ValueString  string             `json:"valueString,omitempty"`
	OrgID        int                `json:"orgId,omitempty"`
}

// GrafanaWebhookPayload is the notification body Grafana's webhook contact
// point sends.
type GrafanaWebhookPayload struct {
	Receiver          string            `json:"receiver"`
	Status            string            `json:"status"`
	OrgID             int               `json:"orgId"`
	Alerts            []GrafanaAlert    `json:"alerts"`
	GroupLabels       map[string]string `json:"groupLabels"`
	CommonLabels      map[string]string `json:"commonLabels"`
	CommonAnnotations map[string]string `json:"commonAnnotations"`
	ExternalURL       string            `json:"externalURL"`
	Version           string            `json:"version"`
	GroupKey          string            `json:"groupKey"`
	TruncatedAlerts   int               `json:"truncatedAlerts"`
	Title             string            `json:"title"`
	State             string            `json:"state"`
	Message           string            `json:"message"`
}

// AlertSummary is the condensed per-alert view injected into the user prompt.
type AlertSummary struct {
	Description string             `json:"description,omitempty"`
	Summary     string             `json:"summary,omitempty"`
	Labels      map[string]string  `json:"labels,omitempty"`
	Values      map[string]float64 `json:"values,omitempty"`
}

// Summaries extracts one [AlertSummary] per alert.
func (p *GrafanaWebhookPayload) Summaries() []AlertSummary {
	summaries := make([]AlertSummary, 0, len(p.Alerts))
	for _, alert := range p.Alerts {
		summaries = append(summaries, AlertSummary{
			Description: alert.Annotations["description"],
			Summary:     alert.Annotations["summary"],
			Labels:      alert.Labels,
			Values:      alert.Values,
		})
	}
	return summaries
}

// GitlabWebhookPayload is the subset of a GitLab merge request event the
// agent cares about.
type GitlabWebhookPayload struct {
	ObjectKind string `json:"object_kind"`
	User       struct {
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"user"`
	Project struct {
		ID                int    `json:"id"`
		Name              string `json:"name"`
		WebURL            string `json:"web_url"`
		PathWithNamespace string `json:"path_with_namespace"`
	} `json:"project"`
	ObjectAttributes struct {
		IID          int    `json:"iid"`
		Title        string `json:"title"`
		Description  string `json:"description"`
		State        string `json:"state"`
		Action       string `json:"action"`
		SourceBranch string `json:"source_branch"`
		TargetBranch string `json:"target_branch"`
		URL          string `json:"url"`
	} `json:"object_attributes"`
}
