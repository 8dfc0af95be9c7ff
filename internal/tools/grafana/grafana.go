package grafana

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sretools/remedian/internal/toolbox"
)

// GroupName is the category under which the Grafana tools are registered.
const GroupName = "grafana"

// queryTypes are the accepted aggregations for the usage tools.
var queryTypes = []string{"min", "avg", "max"}

// defaultStep keeps roughly one datapoint per minute regardless of window.
const defaultStep = 60

// Tools bundles the Prometheus usage handlers around one client.
type Tools struct {
	client *Client
}

// New builds the tool set on top of an existing client.
func New(client *Client) *Tools {
	return &Tools{client: client}
}

func (t *Tools) getCPUUsageOver(ctx context.Context, args map[string]any) (any, error) {
	queryType, hours, err := usageArgs("get_cpu_usage_over", args)
	if err != nil {
		return nil, err
	}
	namespace, pod, container, err := containerArgs("get_cpu_usage_over", args)
	if err != nil {
		return nil, err
	}

	from, to, step := window(hours)
	promql := fmt.Sprintf(
		`max(rate(container_cpu_usage_seconds_total{namespace=%q, pod=%q, container=%q}[%ds])) by (pod)`,
		namespace, pod, container, step)

	result, err := t.client.queryRange(ctx, promql, from, to, step)
	if err != nil {
		return nil, &toolbox.ToolError{
			Tool:    "get_cpu_usage_over",
			Message: "Failed to query Prometheus for pod container CPU usage",
			Inputs:  args,
			Cause:   err,
		}
	}
	value, ok := aggregate(result, queryType)
	if !ok {
		return nil, &toolbox.ToolError{
			Tool:    "get_cpu_usage_over",
			Message: "No CPU usage datapoints found for given container and time range",
			Inputs:  args,
		}
	}
	return map[string]any{"query_type": queryType, "hours": hours, "cpu_cores": value}, nil
}

func (t *Tools) getMemoryUsageOver(ctx context.Context, args map[string]any) (any, error) {
	queryType, hours, err := usageArgs("get_memory_usage_over", args)
	if err != nil {
		return nil, err
	}
	namespace, pod, container, err := containerArgs("get_memory_usage_over", args)
	if err != nil {
		return nil, err
	}

	from, to, step := window(hours)
	promql := fmt.Sprintf(
		`max(container_memory_usage_bytes{namespace=%q, pod=%q, container=%q}) by (pod)`,
		namespace, pod, container)

	result, err := t.client.queryRange(ctx, promql, from, to, step)
	if err != nil {
		return nil, &toolbox.ToolError{
			Tool:    "get_memory_usage_over",
			Message: "Failed to query Prometheus for pod container memory usage",
			Inputs:  args,
			Cause:   err,
		}
	}
	value, ok := aggregate(result, queryType)
	if !ok {
		return nil, &toolbox.ToolError{
			Tool:    "get_memory_usage_over",
			Message: "No memory usage datapoints found for given container and time range",
			Inputs:  args,
		}
	}
	return map[string]any{"query_type": queryType, "hours": hours, "memory_mb": value / (1024 * 1024)}, nil
}

func (t *Tools) getNodeCPUUsage(ctx context.Context, args map[string]any) (any, error) {
	node, err := stringArg("get_node_cpu_usage_from_grafana", args, "node_name")
	if err != nil {
		return nil, err
	}

	from, to, step := window(1)
	promql := fmt.Sprintf(
		`((1 - sum without (mode) (rate(node_cpu_seconds_total{job="node-exporter", mode=~"idle|iowait|steal", instance=%q}[%ds])))/ignoring(cpu) group_left count without (cpu, mode) (node_cpu_seconds_total{job="node-exporter", mode="idle", instance=%q}))`,
		node, step, node)

	result, err := t.client.queryRange(ctx, promql, from, to, step)
	if err != nil {
		return nil, &toolbox.ToolError{
			Tool:    "get_node_cpu_usage_from_grafana",
			Message: "Failed to query Prometheus for node CPU usage",
			Inputs:  args,
			Cause:   err,
		}
	}
	return datapointMap(result), nil
}

func (t *Tools) getNodeMemoryUsage(ctx context.Context, args map[string]any) (any, error) {
	node, err := stringArg("get_node_memory_usage_from_grafana", args, "node_name")
	if err != nil {
		return nil, err
	}

	from, to, step := window(1)
	promql := fmt.Sprintf(
		`(node_memory_MemTotal_bytes{job="node-exporter", instance=%q}-node_memory_MemFree_bytes{job="node-exporter", instance=%q}-node_memory_Buffers_bytes{job="node-exporter", instance=%q}-node_memory_Cached_bytes{job="node-exporter", instance=%q})`,
		node, node, node, node)

	result, err := t.client.queryRange(ctx, promql, from, to, step)
	if err != nil {
		return nil, &toolbox.ToolError{
			Tool:    "get_node_memory_usage_from_grafana",
			Message: "Failed to query Prometheus for node memory usage",
			Inputs:  args,
			Cause:   err,
		}
	}
	return datapointMap(result), nil
}

// window converts a look-back in hours into query range bounds.
func window(hours int) (from, to, step int64) {
	to = time.Now().Unix()
	from = to - int64(hours)*3600
	return from, to, defaultStep
}

// aggregate folds every datapoint of every returned series into one value.
func aggregate(result []series, queryType string) (float64, bool) {
	var (
		minV  = math.Inf(1)
		maxV  = math.Inf(-1)
		sum   float64
		count int
	)
	for _, s := range result {
		for _, dp := range s.Values {
			minV = math.Min(minV, dp.Value)
			maxV = math.Max(maxV, dp.Value)
			sum += dp.Value
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	switch queryType {
	case "min":
		return minV, true
	case "avg":
		return sum / float64(count), true
	default:
		return maxV, true
	}
}

// datapointMap flattens the range result into timestamp keyed values.
func datapointMap(result []series) map[int64]float64 {
	out := make(map[int64]float64)
	for _, s := range result {
		for _, dp := range s.Values {
			out[dp.Timestamp] = dp.Value
		}
	}
	return out
}

func usageArgs(tool string, args map[string]any) (queryType string, hours int, err error) {
	queryType, err = stringArg(tool, args, "query_type")
	if err != nil {
		return "", 0, err
	}
	valid := false
	for _, qt := range queryTypes {
		if queryType == qt {
			valid = true
			break
		}
	}
	if !valid {
		return "", 0, &toolbox.ToolError{
			Tool:    tool,
			Message: fmt.Sprintf("Parameter query_type must be one of min, avg or max, got %q", queryType),
			Inputs:  args,
		}
	}

	raw, ok := args["hours"].(float64)
	if !ok || raw < 1 {
		return "", 0, &toolbox.ToolError{
			Tool:    tool,
			Message: "Parameter hours must be a positive integer",
			Inputs:  args,
		}
	}
	return queryType, int(raw), nil
}

func containerArgs(tool string, args map[string]any) (namespace, pod, container string, err error) {
	if namespace, err = stringArg(tool, args, "namespace"); err != nil {
		return "", "", "", err
	}
	if pod, err = stringArg(tool, args, "pod_name"); err != nil {
		return "", "", "", err
	}
	if container, err = stringArg(tool, args, "container_name"); err != nil {
		return "", "", "", err
	}
	return namespace, pod, container, nil
}

func stringArg(tool string, args map[string]any, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", &toolbox.ToolError{
			Tool:    tool,
			Message: fmt.Sprintf("Missing required parameter %q", key),
			Inputs:  args,
		}
	}
	return v, nil
}
