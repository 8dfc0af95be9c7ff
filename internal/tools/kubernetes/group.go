package kubernetes

import (
	"github.com/sretools/remedian/internal/toolbox"
	"github.com/sretools/remedian/pkg/types"
)

// Group assembles the kubernetes tool group. The handlers are stateless, so
// the same group may be materialized for any number of sessions.
func (t *Tools) Group() toolbox.Group {
	return toolbox.Group{
		Name:        GroupName,
		Description: "Inspect Kubernetes namespaces, nodes, pods, container logs and Helm releases, and delete misbehaving pods",
		Tools: []toolbox.Definition{
			{
				ToolDefinition: types.ToolDefinition{
					Name:        "list_namespaces",
					Description: "List all Kubernetes namespaces",
				},
				Handler: toolbox.HandlerFunc(t.listNamespaces),
			},
			{
				ToolDefinition: types.ToolDefinition{
					Name:        "list_nodes",
					Description: "List all Kubernetes nodes",
				},
				Handler: toolbox.HandlerFunc(t.listNodes),
			},
			{
				ToolDefinition: types.ToolDefinition{
					Name:        "list_pods_in_namespace",
					Description: "List Kubernetes pods",
					Parameters: types.ObjectSchema(map[string]types.Property{
						"namespace": {Type: "string", Description: "Pod namespace"},
					}, "namespace"),
				},
				Handler: toolbox.HandlerFunc(t.listPodsInNamespace),
			},
			{
				ToolDefinition: types.ToolDefinition{
					Name:        "list_pods_in_node",
					Description: "List all pods scheduled on a node",
					Parameters: types.ObjectSchema(map[string]types.Property{
						"node_name": {Type: "string", Description: "Node name"},
					}, "node_name"),
				},
				Handler: toolbox.HandlerFunc(t.listPodsInNode),
			},
			{
				ToolDefinition: types.ToolDefinition{
					Name:        "list_containers_in_pod",
					Description: "List all containers within a pod",
					Parameters: types.ObjectSchema(map[string]types.Property{
						"namespace": {Type: "string", Description: "Pod namespace"},
						"pod_name":  {Type: "string", Description: "Pod name"},
					}, "namespace", "pod_name"),
				},
				Handler: toolbox.HandlerFunc(t.listContainersInPod),
			},
			{
				ToolDefinition: types.ToolDefinition{
					Name:        "get_pod_details",
					Description: "Gets pod spec and status details",
					Parameters: types.ObjectSchema(map[string]types.Property{
						"namespace": {Type: "string", Description: "Pod namespace"},
						"pod_name":  {Type: "string", Description: "Pod name"},
					}, "namespace", "pod_name"),
				},
				Handler: toolbox.HandlerFunc(t.getPodDetails),
			},
			{
				ToolDefinition: types.ToolDefinition{
					Name:        "get_pod_container_logs",
					Description: "Get Kubernetes pod container logs",
					Parameters: types.ObjectSchema(map[string]types.Property{
						"namespace":      {Type: "string", Description: "Pod namespace"},
						"pod_name":       {Type: "string", Description: "Pod name"},
						"container_name": {Type: "string", Description: "Pod's container name"},
					}, "namespace", "pod_name", "container_name"),
				},
				Handler: toolbox.HandlerFunc(t.getPodContainerLogs),
			},
			{
				ToolDefinition: types.ToolDefinition{
					Name:        "get_node_details",
					Description: "Get details about node in Kubernetes",
					Parameters: types.ObjectSchema(map[string]types.Property{
						"node_name":           {Type: "string", Description: "Node name"},
						"include_labels":      {Type: "boolean", Description: "Flag whether to include node labels (enable only if needed)"},
						"include_annotations": {Type: "boolean", Description: "Flag whether to include node annotations (enable only if needed)"},
					}, "node_name"),
				},
				Handler: toolbox.HandlerFunc(t.getNodeDetails),
			},
			{
				ToolDefinition: types.ToolDefinition{
					Name:        "get_node_resources",
					Description: "Get Kubernetes node resource capacity and allocatable amounts",
					Parameters: types.ObjectSchema(map[string]types.Property{
						"node_name": {Type: "string", Description: "Node name"},
					}, "node_name"),
				},
				Handler: toolbox.HandlerFunc(t.getNodeResources),
			},
			{
				ToolDefinition: types.ToolDefinition{
					Name:        "delete_pod",
					Description: "Delete a pod so its controller reschedules it",
					Parameters: types.ObjectSchema(map[string]types.Property{
						"namespace": {Type: "string", Description: "Pod namespace"},
						"pod_name":  {Type: "string", Description: "Pod name"},
					}, "namespace", "pod_name"),
				},
				Handler: toolbox.HandlerFunc(t.deletePod),
			},
			{
				ToolDefinition: types.ToolDefinition{
					Name:        "get_pod_helm_release_metadata",
					Description: "Gets latest Helm release metadata along with default and override values.yaml files used to customize the release",
					Parameters: types.ObjectSchema(map[string]types.Property{
						"namespace": {Type: "string", Description: "Pod namespace"},
						"pod_name":  {Type: "string", Description: "Pod name"},
					}, "namespace", "pod_name"),
				},
				Handler: toolbox.HandlerFunc(t.getPodHelmReleaseMetadata),
			},
		},
	}
}
