package kubernetes

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/sretools/remedian/internal/toolbox"
)

// helmSecretPrefix is the name prefix Helm v3 uses for its release secrets.
const helmSecretPrefix = "sh.helm.release.v1."

// helmRelease is the subset of Helm's release payload reported to the model:
// enough to understand what chart runs with which value overrides.
type helmRelease struct {
	Name   string         `json:"name"`
	Config map[string]any `json:"config"`
	Chart  struct {
		Metadata struct {
			Name string `json:"name"`
		} `json:"metadata"`
		Values map[string]any `json:"values"`
	} `json:"chart"`
}

// getPodHelmReleaseMetadata decodes the newest Helm release secret of the
// pod's namespace. Helm stores the release as base64 inside the secret data
// (which the API server base64-wraps once more) around a gzipped JSON blob.
func (t *Tools) getPodHelmReleaseMetadata(ctx context.Context, args map[string]any) (any, error) {
	const tool = "get_pod_helm_release_metadata"

	namespace, err := stringArg(tool, args, "namespace")
	if err != nil {
		return nil, err
	}
	if _, err := stringArg(tool, args, "pod_name"); err != nil {
		return nil, err
	}
	if err := t.validateNamespace(ctx, tool, namespace, args); err != nil {
		return nil, err
	}

	secrets, lerr := t.client.CoreV1().Secrets(namespace).List(ctx, metav1.ListOptions{})
	if lerr != nil {
		return nil, &toolbox.ToolError{Tool: tool, Message: "Failed to decode pod's helm release metadata", Inputs: args, Cause: lerr}
	}

	var latest *metav1.Time
	var payload []byte
	for i := range secrets.Items {
		s := &secrets.Items[i]
		if !strings.HasPrefix(s.Name, helmSecretPrefix) {
			continue
		}
		created := s.CreationTimestamp
		if latest != nil && !created.After(latest.Time) {
			continue
		}
		latest = &created
		payload = s.Data["release"]
	}
	if latest == nil {
		return nil, &toolbox.ToolError{Tool: tool, Message: "Can't find Helm release for given container", Inputs: args}
	}
	if len(payload) == 0 {
		return nil, &toolbox.ToolError{Tool: tool, Message: "No release data found in latest Helm secret", Inputs: args}
	}

	release, derr := decodeHelmRelease(payload)
	if derr != nil {
		return nil, &toolbox.ToolError{Tool: tool, Message: "Couldn't parse Helm release metadata", Inputs: args, Cause: derr}
	}
	return map[string]any{
		"name":           release.Name,
		"namespace":      namespace,
		"chart_name":     release.Chart.Metadata.Name,
		"default_values": release.Chart.Values,
		"current_values": release.Config,
	}, nil
}

// decodeHelmRelease unwraps the remaining base64 layer, decompresses the
// gzip stream and parses the JSON release object.
func decodeHelmRelease(payload []byte) (*helmRelease, error) {
	raw, err := base64.StdEncoding.DecodeString(string(payload))
	if err != nil {
		return nil, err
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	decompressed, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}

	release := &helmRelease{}
	if err := json.Unmarshal(decompressed, release); err != nil {
		return nil, err
	}
	return release, nil
}
