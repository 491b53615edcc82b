package kubernetes

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"model-serving-service/internal/config"
	"model-serving-service/internal/core/domain"
	ports "model-serving-service/internal/core/ports/output"
)

var configMapGVR = schema.GroupVersionResource{
	Group:    "",
	Version:  "v1",
	Resource: "configmaps",
}

const bundleKeySuffix = ".json"

type configMapStore struct {
	client    dynamic.Interface
	namespace string
	name      string
}

// NewConfigMapStore connects to the cluster described by cfg and reads
// bundles from a single ConfigMap, one key per artifact (<name>.json).
func NewConfigMapStore(cfg *config.KubernetesConfig) (ports.ArtifactStore, error) {
	var restCfg *rest.Config
	var err error

	if cfg.InCluster {
		restCfg, err = rest.InClusterConfig()
	} else if cfg.KubeConfigPath != "" {
		restCfg, err = clientcmd.BuildConfigFromFlags("", cfg.KubeConfigPath)
	} else {
		// Try default kubeconfig location
		home, _ := os.UserHomeDir()
		kubeconfig := filepath.Join(home, ".kube", "config")
		restCfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if err != nil {
		return nil, fmt.Errorf("build k8s config: %w", err)
	}

	client, err := dynamic.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("create dynamic client: %w", err)
	}

	return NewConfigMapStoreWithClient(client, cfg.Namespace, cfg.ConfigMap), nil
}

// NewConfigMapStoreWithClient reads bundles through an existing client.
func NewConfigMapStoreWithClient(client dynamic.Interface, namespace, name string) ports.ArtifactStore {
	if namespace == "" {
		namespace = "model-serving"
	}
	return &configMapStore{client: client, namespace: namespace, name: name}
}

func (s *configMapStore) Describe() string {
	return fmt.Sprintf("configmap://%s/%s", s.namespace, s.name)
}

func (s *configMapStore) Fetch(ctx context.Context, name string) ([]byte, error) {
	obj, err := s.client.Resource(configMapGVR).
		Namespace(s.namespace).
		Get(ctx, s.name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, fmt.Errorf("%w: configmap %s/%s", domain.ErrArtifactNotFound, s.namespace, s.name)
		}
		return nil, fmt.Errorf("get artifact configmap: %w", err)
	}

	key := name + bundleKeySuffix

	data, _, _ := unstructured.NestedStringMap(obj.Object, "data")
	if v, ok := data[key]; ok {
		return []byte(v), nil
	}

	// binaryData values are base64 in the unstructured form.
	binary, _, _ := unstructured.NestedStringMap(obj.Object, "binaryData")
	if v, ok := binary[key]; ok {
		decoded, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("%w: binaryData %q: %v", domain.ErrInvalidBundle, key, err)
		}
		return decoded, nil
	}

	return nil, fmt.Errorf("%w: key %q in configmap %s/%s", domain.ErrArtifactNotFound, key, s.namespace, s.name)
}

var _ ports.ArtifactStore = (*configMapStore)(nil)
