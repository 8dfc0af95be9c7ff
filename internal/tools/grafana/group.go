package grafana

import (
	"github.com/sretools/remedian/internal/toolbox"
	"github.com/sretools/remedian/pkg/types"
)

// Group exposes the Prometheus usage tools as a registrable category.
func (t *Tools) Group() toolbox.Group {
	usageParams := func() *types.Schema {
		return types.ObjectSchema(map[string]types.Property{
			"query_type":     {Type: "string", Enum: queryTypes, Description: "Aggregation to apply over the time range"},
			"hours":          {Type: "integer", Description: "Look-back window in hours from now"},
			"namespace":      {Type: "string", Description: "Pod namespace"},
			"pod_name":       {Type: "string", Description: "Pod name"},
			"container_name": {Type: "string", Description: "Pod's container name"},
		}, "query_type", "hours", "namespace", "pod_name", "container_name")
	}

	return toolbox.Group{
		Name:        GroupName,
		Description: "Prometheus usage metrics for pods and nodes, queried through Grafana",
		Tools: []toolbox.Definition{
			{
				ToolDefinition: types.ToolDefinition{
					Name:        "get_cpu_usage_over",
					Description: "Allows to get min/avg/max container CPU usage in CPUs over given time in hours from now",
					Parameters:  usageParams(),
				},
				Handler: toolbox.HandlerFunc(t.getCPUUsageOver),
			},
			{
				ToolDefinition: types.ToolDefinition{
					Name:        "get_memory_usage_over",
					Description: "Allows to get min/avg/max container memory usage in MBs over given time in hours from now",
					Parameters:  usageParams(),
				},
				Handler: toolbox.HandlerFunc(t.getMemoryUsageOver),
			},
			{
				ToolDefinition: types.ToolDefinition{
					Name:        "get_node_cpu_usage_from_grafana",
					Description: "Get node cpu usage from Prometheus- returns dict(timestamp, datapoint)",
					Parameters: types.ObjectSchema(map[string]types.Property{
						"node_name": {Type: "string", Description: "Node name"},
					}, "node_name"),
				},
				Handler: toolbox.HandlerFunc(t.getNodeCPUUsage),
			},
			{
				ToolDefinition: types.ToolDefinition{
					Name:        "get_node_memory_usage_from_grafana",
					Description: "Get node memory usage from Prometheus- returns dict(timestamp, datapoint)",
					Parameters: types.ObjectSchema(map[string]types.Property{
						"node_name": {Type: "string", Description: "Node name"},
					}, "node_name"),
				},
				Handler: toolbox.HandlerFunc(t.getNodeMemoryUsage),
			},
		},
	}
}
