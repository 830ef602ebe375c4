// Package k8ssource polls GPU batch/v1.Job objects on a live Kubernetes
// cluster and turns them into scheduler Jobs, so the Simulator can run
// against a live queue instead of replaying Lof_Selectjobs.csv. It is an
// optional job source: the CSV loader remains the primary, offline path.
package k8ssource

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	batchv1 "k8s.io/api/batch/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/ai-sprint-eu-project/GPUScheduler/internal/model"
)

const (
	// deadlineAnnotation carries the job's absolute deadline, in the same
	// time unit as the scheduler's simulation clock (seconds since the
	// Simulator's epoch), since Kubernetes Jobs have no native deadline.
	deadlineAnnotation = "gpuscheduler.io/deadline"
	// weightLabel carries the tardiness weight; labels (not annotations)
	// so it stays selectable for operator dashboards.
	weightLabel = "gpuscheduler.io/tardiness-weight"
	// gpuResourceName is the standard device-plugin resource the source
	// uses to pick out GPU Jobs; the requested count is not read, and
	// execution times come from the TimeTable, not here.
	gpuResourceName = "nvidia.com/gpu"
	gpuTypeLabel    = "gpuscheduler.io/gpu-type"
)

// Admitter is the subset of *simulator.Simulator the source needs to hand
// off newly discovered jobs; satisfied by simulator.Simulator.AdmitJob.
type Admitter interface {
	AdmitJob(j *model.Job)
}

// Source lists GPU batch/v1.Job objects in namespace and admits newly
// seen, unscheduled ones into an Admitter. It satisfies liveloop.Source.
type Source struct {
	clientset kubernetes.Interface
	namespace string
	admitter  Admitter

	mu   sync.Mutex
	seen map[string]bool
}

// New builds a Source over clientset, restricted to namespace (empty string
// lists all namespaces the caller's RBAC permits), admitting discovered
// jobs into admitter.
func New(clientset kubernetes.Interface, namespace string, admitter Admitter) *Source {
	return &Source{clientset: clientset, namespace: namespace, admitter: admitter, seen: make(map[string]bool)}
}

// PollNewJobs lists GPU Jobs once, paginating to avoid loading an entire
// large cluster's Job list into memory at once, admits every job not
// previously seen, and returns how many were newly admitted.
func (s *Source) PollNewJobs(ctx context.Context) (int, error) {
	jobs, err := s.listGPUJobs(ctx)
	if err != nil {
		return 0, fmt.Errorf("k8ssource: listing jobs: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	admitted := 0
	for _, kj := range jobs {
		key := kj.Namespace + "/" + kj.Name
		if s.seen[key] {
			continue
		}
		s.seen[key] = true
		sj, ok := convert(kj)
		if !ok {
			continue
		}
		s.admitter.AdmitJob(sj)
		admitted++
	}
	return admitted, nil
}

func (s *Source) listGPUJobs(ctx context.Context) ([]batchv1.Job, error) {
	var out []batchv1.Job
	continueToken := ""
	for {
		page, err := s.clientset.BatchV1().Jobs(s.namespace).List(ctx, metav1.ListOptions{
			Limit:    500,
			Continue: continueToken,
		})
		if err != nil {
			return nil, err
		}
		for _, j := range page.Items {
			if requestsGPU(&j) {
				out = append(out, j)
			}
		}
		continueToken = page.Continue
		if continueToken == "" {
			break
		}
	}
	return out, nil
}

func requestsGPU(j *batchv1.Job) bool {
	for _, c := range j.Spec.Template.Spec.Containers {
		if _, ok := c.Resources.Requests[gpuResourceName]; ok {
			return true
		}
	}
	return false
}

// convert builds a model.Job from a Kubernetes Job, reading its deadline
// annotation and tardiness-weight label. ok is false when the deadline
// annotation is absent or unparsable - such a Job is skipped rather than
// admitted with a fabricated deadline.
func convert(j batchv1.Job) (*model.Job, bool) {
	raw, ok := j.Annotations[deadlineAnnotation]
	if !ok {
		return nil, false
	}
	deadline, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, false
	}

	weight := 1.0
	if raw, ok := j.Labels[weightLabel]; ok {
		if w, err := strconv.ParseFloat(raw, 64); err == nil && w > 0 {
			weight = w
		}
	}

	submission := 0.0
	if j.CreationTimestamp.Unix() > 0 {
		submission = float64(j.CreationTimestamp.Unix())
	}

	return &model.Job{
		ID:              j.Namespace + "/" + j.Name,
		SubmissionTime:  submission,
		Deadline:        deadline,
		TardinessWeight: weight,
		RatioAvg:        1.0,
	}, true
}

// GPUType reads the gpu-type label a converted Job's TimeTable rows should
// be keyed under, defaulting to "unknown" when absent.
func GPUType(j batchv1.Job) string {
	if t, ok := j.Labels[gpuTypeLabel]; ok {
		return t
	}
	return "unknown"
}
