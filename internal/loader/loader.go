// Package loader reads the four fixed-schema CSV input files the scheduler
// consumes: the job roster, the execution-time table, the node fleet, and
// the GPU cost catalogue.
package loader

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ai-sprint-eu-project/GPUScheduler/internal/catalogue"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/model"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/resourcemap"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/timetable"
)

// MissingInputError reports a required file being absent or empty -
// InputMissing in the error taxonomy, fatal at start-up.
type MissingInputError struct {
	Path string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("loader: required input file missing or empty: %s", e.Path)
}

// SchemaMismatchError reports a CSV row lacking a required column -
// SchemaMismatch, fatal at start-up.
type SchemaMismatchError struct {
	Path   string
	Detail string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("loader: schema mismatch in %s: %s", e.Path, e.Detail)
}

// Bundle holds every loaded input, ready to hand to the engine and
// simulator.
type Bundle struct {
	Jobs      []*model.Job
	TimeTable *timetable.TimeTable
	Resources *resourcemap.ResourceMap
	Catalogue *catalogue.Static
}

// LoadDir loads Lof_Selectjobs.csv, SelectJobs_times.csv, tNodes.csv and
// GPU-costs.csv from dir.
func LoadDir(dir string) (*Bundle, error) {
	jobs, err := loadJobs(filepath.Join(dir, "Lof_Selectjobs.csv"))
	if err != nil {
		return nil, err
	}
	tt, err := loadTimeTable(filepath.Join(dir, "SelectJobs_times.csv"))
	if err != nil {
		return nil, err
	}
	rm, err := loadNodes(filepath.Join(dir, "tNodes.csv"))
	if err != nil {
		return nil, err
	}
	cat, err := loadCatalogue(filepath.Join(dir, "GPU-costs.csv"))
	if err != nil {
		return nil, err
	}
	return &Bundle{Jobs: jobs, TimeTable: tt, Resources: rm, Catalogue: cat}, nil
}

func openCSV(path string) (*csv.Reader, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, &MissingInputError{Path: path}
	}
	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	return r, f, nil
}

func readHeader(r *csv.Reader, path string, required []string) (map[string]int, error) {
	header, err := r.Read()
	if err != nil {
		return nil, &MissingInputError{Path: path}
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return nil, &SchemaMismatchError{Path: path, Detail: fmt.Sprintf("missing column %q", col)}
		}
	}
	return idx, nil
}

func loadJobs(path string) ([]*model.Job, error) {
	r, f, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	idx, err := readHeader(r, path, []string{"ID", "SubmissionTime", "Deadline", "TardinessWeight", "MinExecTime", "MaxExecTime", "RatioAvg"})
	if err != nil {
		return nil, err
	}

	var jobs []*model.Job
	for {
		row, err := r.Read()
		if err != nil {
			break
		}
		j := &model.Job{
			ID:              row[idx["ID"]],
			SubmissionTime:  parseFloat(row[idx["SubmissionTime"]]),
			Deadline:        parseFloat(row[idx["Deadline"]]),
			TardinessWeight: parseFloat(row[idx["TardinessWeight"]]),
			MinExecTime:     parseFloat(row[idx["MinExecTime"]]),
			MaxExecTime:     parseFloat(row[idx["MaxExecTime"]]),
			RatioAvg:        parseFloat(row[idx["RatioAvg"]]),
		}
		if i, ok := idx["Epochs"]; ok && i < len(row) {
			j.MaxEpochs = int(parseFloat(row[i]))
		}
		jobs = append(jobs, j)
	}
	if len(jobs) == 0 {
		return nil, &MissingInputError{Path: path}
	}
	return jobs, nil
}

func loadTimeTable(path string) (*timetable.TimeTable, error) {
	r, f, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	idx, err := readHeader(r, path, []string{"ID", "GPUtype", "nGPUs", "GPUf", "ExecutionTime"})
	if err != nil {
		return nil, err
	}

	tt := timetable.New(nil)
	count := 0
	for {
		row, err := r.Read()
		if err != nil {
			break
		}
		setup := model.Setup{
			GPUType:     row[idx["GPUtype"]],
			GPUCount:    int(parseFloat(row[idx["nGPUs"]])),
			GPUFraction: parseFloat(row[idx["GPUf"]]),
		}
		tt.Load(row[idx["ID"]], setup, parseFloat(row[idx["ExecutionTime"]]))
		count++
	}
	if count == 0 {
		return nil, &MissingInputError{Path: path}
	}
	return tt, nil
}

func loadNodes(path string) (*resourcemap.ResourceMap, error) {
	r, f, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	idx, err := readHeader(r, path, []string{"ID", "GPUtype", "nGPUs", "cost"})
	if err != nil {
		return nil, err
	}

	rm := resourcemap.New(nil)
	count := 0
	for {
		row, err := r.Read()
		if err != nil {
			break
		}
		n := &model.Node{
			ID:               row[idx["ID"]],
			GPUType:          row[idx["GPUtype"]],
			GPUCount:         int(parseFloat(row[idx["nGPUs"]])),
			LeaseCostPerHour: parseFloat(row[idx["cost"]]),
		}
		n.Remaining = n.GPUCount
		rm.AddNode(n)
		count++
	}
	if count == 0 {
		return nil, &MissingInputError{Path: path}
	}
	return rm, nil
}

func loadCatalogue(path string) (*catalogue.Static, error) {
	r, f, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	idx, err := readHeader(r, path, []string{"GPUtype", "nGPUs", "cost"})
	if err != nil {
		return nil, err
	}

	cat := catalogue.NewStatic()
	count := 0
	for {
		row, err := r.Read()
		if err != nil {
			break
		}
		cat.Add(row[idx["GPUtype"]], int(parseFloat(row[idx["nGPUs"]])), parseFloat(row[idx["cost"]]))
		count++
	}
	if count == 0 {
		return nil, &MissingInputError{Path: path}
	}
	return cat, nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
