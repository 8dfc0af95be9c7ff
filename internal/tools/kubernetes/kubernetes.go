// Package kubernetes exposes cluster inspection and remediation operations
// as model-invocable tools. All handlers report expected failures (unknown
// namespace, missing pod, API rejection) as toolbox.ToolError so the model
// can react instead of the session dying.
package kubernetes

import (
	"context"
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8s "k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/sretools/remedian/internal/toolbox"
)

// GroupName is the router category under which these tools are unlocked.
const GroupName = "kubernetes"

// defaultExcludedLabelPrefixes lists well-known system label prefixes that
// are noise to the model and inflate prompts.
var defaultExcludedLabelPrefixes = []string{
	"feature.node.kubernetes.io/",
	"node.kubernetes.io/",
	"beta.kubernetes.io/",
	"kubernetes.io/",
	"k8s.io/",
	"node-role.kubernetes.io/",
}

// defaultLogTailLines bounds how much log output a single tool call feeds
// back into the conversation.
const defaultLogTailLines int64 = 10

// Tools wraps a Kubernetes clientset with the handlers of the kubernetes
// tool group. The clientset tolerates concurrent use, so one Tools instance
// serves all sessions.
type Tools struct {
	client         k8s.Interface
	excludedLabels []string
	logTailLines   int64
}

// Option configures Tools.
type Option func(*Tools)

// WithExcludedLabelPrefixes overrides the default system label filter.
func WithExcludedLabelPrefixes(prefixes []string) Option {
	return func(t *Tools) {
		if len(prefixes) > 0 {
			t.excludedLabels = prefixes
		}
	}
}

// WithLogTailLines overrides how many log lines get_pod_container_logs
// fetches.
func WithLogTailLines(n int64) Option {
	return func(t *Tools) {
		if n > 0 {
			t.logTailLines = n
		}
	}
}

// New creates Tools on top of an existing clientset.
func New(client k8s.Interface, opts ...Option) *Tools {
	t := &Tools{
		client:         client,
		excludedLabels: defaultExcludedLabelPrefixes,
		logTailLines:   defaultLogTailLines,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewFromKubeconfig builds Tools from a kubeconfig path. An empty path falls
// back to in-cluster configuration.
func NewFromKubeconfig(path string, opts ...Option) (*Tools, error) {
	var (
		cfg *rest.Config
		err error
	)
	if path != "" {
		cfg, err = clientcmd.BuildConfigFromFlags("", path)
	} else {
		cfg, err = rest.InClusterConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("kubernetes: load config: %w", err)
	}
	client, err := k8s.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("kubernetes: build clientset: %w", err)
	}
	return New(client, opts...), nil
}

// Ping verifies API server connectivity. Used as a readiness check.
func (t *Tools) Ping(ctx context.Context) error {
	_, err := t.client.Discovery().ServerVersion()
	return err
}

// validateNamespace checks the namespace exists before any namespaced
// operation, so the model gets a stable "No such namespace" answer instead
// of a per-operation API error.
func (t *Tools) validateNamespace(ctx context.Context, tool, namespace string, inputs map[string]any) error {
	list, err := t.client.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		return &toolbox.ToolError{Tool: tool, Message: "Failed to list namespaces", Inputs: inputs, Cause: err}
	}
	for _, item := range list.Items {
		if item.Name == namespace {
			return nil
		}
	}
	return &toolbox.ToolError{Tool: tool, Message: "No such namespace", Inputs: inputs}
}

// filterLabels drops keys carrying one of the excluded prefixes.
func (t *Tools) filterLabels(labels map[string]string) map[string]string {
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		excluded := false
		for _, prefix := range t.excludedLabels {
			if strings.HasPrefix(k, prefix) {
				excluded = true
				break
			}
		}
		if !excluded {
			out[k] = v
		}
	}
	return out
}

func (t *Tools) listNamespaces(ctx context.Context, _ map[string]any) (any, error) {
	list, err := t.client.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, &toolbox.ToolError{Tool: "list_namespaces", Message: "Failed to list namespaces", Cause: err}
	}
	names := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		names = append(names, item.Name)
	}
	return map[string]any{"items": names}, nil
}

func (t *Tools) listNodes(ctx context.Context, _ map[string]any) (any, error) {
	list, err := t.client.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, &toolbox.ToolError{Tool: "list_nodes", Message: "Failed to list nodes", Cause: err}
	}
	names := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		names = append(names, item.Name)
	}
	return map[string]any{"items": names}, nil
}

func (t *Tools) listPodsInNamespace(ctx context.Context, args map[string]any) (any, error) {
	namespace, err := stringArg("list_pods_in_namespace", args, "namespace")
	if err != nil {
		return nil, err
	}
	if err := t.validateNamespace(ctx, "list_pods_in_namespace", namespace, args); err != nil {
		return nil, err
	}
	list, lerr := t.client.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if lerr != nil {
		return nil, &toolbox.ToolError{Tool: "list_pods_in_namespace", Message: "Failed to list pods", Inputs: args, Cause: lerr}
	}
	names := make([]string, 0, len(list.Items))
	for _, pod := range list.Items {
		names = append(names, pod.Name)
	}
	return map[string]any{"items": names}, nil
}

func (t *Tools) listPodsInNode(ctx context.Context, args map[string]any) (any, error) {
	nodeName, err := stringArg("list_pods_in_node", args, "node_name")
	if err != nil {
		return nil, err
	}
	list, lerr := t.client.CoreV1().Pods(metav1.NamespaceAll).List(ctx, metav1.ListOptions{
		FieldSelector: "spec.nodeName=" + nodeName,
	})
	if lerr != nil {
		return nil, &toolbox.ToolError{Tool: "list_pods_in_node", Message: "Failed to list node pods", Inputs: args, Cause: lerr}
	}
	names := make([]string, 0, len(list.Items))
	for _, pod := range list.Items {
		names = append(names, pod.Name)
	}
	return map[string]any{"items": names}, nil
}

func (t *Tools) listContainersInPod(ctx context.Context, args map[string]any) (any, error) {
	namespace, err := stringArg("list_containers_in_pod", args, "namespace")
	if err != nil {
		return nil, err
	}
	podName, err := stringArg("list_containers_in_pod", args, "pod_name")
	if err != nil {
		return nil, err
	}
	if err := t.validateNamespace(ctx, "list_containers_in_pod", namespace, args); err != nil {
		return nil, err
	}
	pod, gerr := t.client.CoreV1().Pods(namespace).Get(ctx, podName, metav1.GetOptions{})
	if gerr != nil {
		return nil, &toolbox.ToolError{Tool: "list_containers_in_pod", Message: "Failed to list containers in pod", Inputs: args, Cause: gerr}
	}
	names := make([]string, 0, len(pod.Spec.Containers))
	for _, c := range pod.Spec.Containers {
		names = append(names, c.Name)
	}
	return map[string]any{"items": names}, nil
}

func (t *Tools) getPodDetails(ctx context.Context, args map[string]any) (any, error) {
	namespace, err := stringArg("get_pod_details", args, "namespace")
	if err != nil {
		return nil, err
	}
	podName, err := stringArg("get_pod_details", args, "pod_name")
	if err != nil {
		return nil, err
	}
	if err := t.validateNamespace(ctx, "get_pod_details", namespace, args); err != nil {
		return nil, err
	}
	pod, gerr := t.client.CoreV1().Pods(namespace).Get(ctx, podName, metav1.GetOptions{})
	if gerr != nil {
		return nil, &toolbox.ToolError{Tool: "get_pod_details", Message: "No such pod", Inputs: args, Cause: gerr}
	}
	return map[string]any{
		"name":      pod.Name,
		"namespace": pod.Namespace,
		"labels":    pod.Labels,
		"spec":      pod.Spec,
		"status":    pod.Status,
	}, nil
}

func (t *Tools) getPodContainerLogs(ctx context.Context, args map[string]any) (any, error) {
	namespace, err := stringArg("get_pod_container_logs", args, "namespace")
	if err != nil {
		return nil, err
	}
	podName, err := stringArg("get_pod_container_logs", args, "pod_name")
	if err != nil {
		return nil, err
	}
	containerName, err := stringArg("get_pod_container_logs", args, "container_name")
	if err != nil {
		return nil, err
	}
	if err := t.validateNamespace(ctx, "get_pod_container_logs", namespace, args); err != nil {
		return nil, err
	}
	tail := t.logTailLines
	raw, lerr := t.client.CoreV1().Pods(namespace).GetLogs(podName, &corev1.PodLogOptions{
		Container: containerName,
		TailLines: &tail,
	}).DoRaw(ctx)
	if lerr != nil {
		return nil, &toolbox.ToolError{Tool: "get_pod_container_logs", Message: "Failed to get pod logs", Inputs: args, Cause: lerr}
	}
	return map[string]any{
		"namespace":      namespace,
		"pod_name":       podName,
		"container_name": containerName,
		"logs":           strings.Split(string(raw), "\n"),
	}, nil
}

func (t *Tools) getNodeDetails(ctx context.Context, args map[string]any) (any, error) {
	nodeName, err := stringArg("get_node_details", args, "node_name")
	if err != nil {
		return nil, err
	}
	node, gerr := t.client.CoreV1().Nodes().Get(ctx, nodeName, metav1.GetOptions{})
	if gerr != nil {
		return nil, &toolbox.ToolError{Tool: "get_node_details", Message: "No such node", Inputs: args, Cause: gerr}
	}
	details := map[string]any{
		"name":       node.Name,
		"addresses":  node.Status.Addresses,
		"conditions": node.Status.Conditions,
		"node_info":  node.Status.NodeInfo,
	}
	if include, _ := args["include_labels"].(bool); include {
		details["labels"] = t.filterLabels(node.Labels)
	}
	if include, _ := args["include_annotations"].(bool); include {
		details["annotations"] = t.filterLabels(node.Annotations)
	}
	return details, nil
}

func (t *Tools) getNodeResources(ctx context.Context, args map[string]any) (any, error) {
	nodeName, err := stringArg("get_node_resources", args, "node_name")
	if err != nil {
		return nil, err
	}
	node, gerr := t.client.CoreV1().Nodes().Get(ctx, nodeName, metav1.GetOptions{})
	if gerr != nil {
		return nil, &toolbox.ToolError{Tool: "get_node_resources", Message: "Failed to get node resources", Inputs: args, Cause: gerr}
	}
	return map[string]any{
		"name": nodeName,
		"capacity": map[string]string{
			"cpu":               node.Status.Capacity.Cpu().String(),
			"memory":            node.Status.Capacity.Memory().String(),
			"pods":              node.Status.Capacity.Pods().String(),
			"ephemeral-storage": node.Status.Capacity.StorageEphemeral().String(),
		},
		"allocatable": map[string]string{
			"cpu":               node.Status.Allocatable.Cpu().String(),
			"memory":            node.Status.Allocatable.Memory().String(),
			"pods":              node.Status.Allocatable.Pods().String(),
			"ephemeral-storage": node.Status.Allocatable.StorageEphemeral().String(),
		},
	}, nil
}

func (t *Tools) deletePod(ctx context.Context, args map[string]any) (any, error) {
	namespace, err := stringArg("delete_pod", args, "namespace")
	if err != nil {
		return nil, err
	}
	podName, err := stringArg("delete_pod", args, "pod_name")
	if err != nil {
		return nil, err
	}
	if err := t.validateNamespace(ctx, "delete_pod", namespace, args); err != nil {
		return nil, err
	}
	if derr := t.client.CoreV1().Pods(namespace).Delete(ctx, podName, metav1.DeleteOptions{}); derr != nil {
		return nil, &toolbox.ToolError{Tool: "delete_pod", Message: "Failed to delete pod", Inputs: args, Cause: derr}
	}
	return map[string]any{"success": true}, nil
}

// stringArg extracts a required string argument, converting absence into a
// ToolError the model can correct.
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
