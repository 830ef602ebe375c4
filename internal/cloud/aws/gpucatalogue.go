// Package aws adapts AWS's EC2 Pricing API into a catalogue.Catalogue,
// so a cluster running on AWS GPU instances can price jobs from live
// on-demand rates instead of an operator-maintained CSV.
package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	awscfg "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	pricingtypes "github.com/aws/aws-sdk-go-v2/service/pricing/types"

	"github.com/ai-sprint-eu-project/GPUScheduler/internal/catalogue"
)

// gpuInstanceType maps a GPU type name to the EC2 instance type that
// carries it, used to query the Pricing API by instanceType filter.
var gpuInstanceType = map[string]string{
	"V100": "p3.2xlarge",
	"A100": "p4d.24xlarge",
	"A10G": "g5.xlarge",
	"T4":   "g4dn.xlarge",
	"K80":  "p2.xlarge",
	"H100": "p5.48xlarge",
	"L4":   "g6.xlarge",
	"L40S": "g6e.xlarge",
}

// gpuFallbackRates are per-GPU hourly rates used when the Pricing API is
// unavailable. Based on published us-east-1 on-demand pricing; may be
// stale, and are only consulted when a live lookup fails.
var gpuFallbackRates = map[string]float64{
	"V100": 2.448,
	"A100": 3.40,
	"A10G": 1.006,
	"T4":   0.526,
	"K80":  0.90,
	"H100": 6.98,
	"L4":   0.726,
	"L40S": 2.754,
}

// GPUCatalogue prices GPU-hours from the AWS Pricing API, caching results
// in memory for an hour and falling back to gpuFallbackRates on error.
type GPUCatalogue struct {
	client *pricing.Client
	region string

	mu        sync.RWMutex
	cache     map[string]float64
	cacheTime time.Time
}

// NewGPUCatalogue builds a GPUCatalogue for region (the cluster's billing
// region; the AWS Pricing API itself is only served from us-east-1).
func NewGPUCatalogue(ctx context.Context, region string) (*GPUCatalogue, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion("us-east-1"))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &GPUCatalogue{
		client: pricing.NewFromConfig(cfg),
		region: region,
		cache:  make(map[string]float64),
	}, nil
}

// UnitCost implements catalogue.Catalogue. usedCount is accepted only to
// satisfy the interface: AWS on-demand GPU pricing is per-GPU-hour
// regardless of how many GPUs in the instance are in use.
func (g *GPUCatalogue) UnitCost(gpuType string, usedCount int) (float64, bool) {
	g.mu.RLock()
	if rate, ok := g.cache[gpuType]; ok && time.Since(g.cacheTime) < time.Hour {
		g.mu.RUnlock()
		return rate, true
	}
	g.mu.RUnlock()

	rate, err := g.fetchRate(gpuType)
	if err != nil {
		slog.Warn("aws: GPU pricing lookup failed, using fallback rate",
			"gpuType", gpuType, "error", err)
		rate, ok := gpuFallbackRates[gpuType]
		return rate, ok
	}

	g.mu.Lock()
	g.cache[gpuType] = rate
	g.cacheTime = time.Now()
	g.mu.Unlock()
	return rate, true
}

func (g *GPUCatalogue) fetchRate(gpuType string) (float64, error) {
	instanceType, ok := gpuInstanceType[gpuType]
	if !ok {
		return 0, fmt.Errorf("no known EC2 instance type for GPU %q", gpuType)
	}

	filters := []pricingtypes.Filter{
		{Type: pricingtypes.FilterTypeTermMatch, Field: awscfg.String("ServiceCode"), Value: awscfg.String("AmazonEC2")},
		{Type: pricingtypes.FilterTypeTermMatch, Field: awscfg.String("instanceType"), Value: awscfg.String(instanceType)},
		{Type: pricingtypes.FilterTypeTermMatch, Field: awscfg.String("regionCode"), Value: awscfg.String(g.region)},
		{Type: pricingtypes.FilterTypeTermMatch, Field: awscfg.String("operatingSystem"), Value: awscfg.String("Linux")},
		{Type: pricingtypes.FilterTypeTermMatch, Field: awscfg.String("tenancy"), Value: awscfg.String("Shared")},
		{Type: pricingtypes.FilterTypeTermMatch, Field: awscfg.String("preInstalledSw"), Value: awscfg.String("NA")},
		{Type: pricingtypes.FilterTypeTermMatch, Field: awscfg.String("capacitystatus"), Value: awscfg.String("Used")},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out, err := g.client.GetProducts(ctx, &pricing.GetProductsInput{
		ServiceCode: awscfg.String("AmazonEC2"),
		Filters:     filters,
		MaxResults:  awscfg.Int32(1),
	})
	if err != nil {
		return 0, fmt.Errorf("GetProducts for %s: %w", instanceType, err)
	}
	if len(out.PriceList) == 0 {
		return 0, fmt.Errorf("no price list entries for %s in %s", instanceType, g.region)
	}

	price, ok := parseOnDemandPrice(out.PriceList[0])
	if !ok {
		return 0, fmt.Errorf("no usable on-demand USD price dimension for %s", instanceType)
	}
	return price, nil
}

// parseOnDemandPrice extracts the hourly on-demand USD rate from a single
// PriceList JSON entry returned by GetProducts.
func parseOnDemandPrice(priceJSON string) (price float64, ok bool) {
	var item struct {
		Terms struct {
			OnDemand map[string]struct {
				PriceDimensions map[string]struct {
					Unit         string            `json:"unit"`
					PricePerUnit map[string]string `json:"pricePerUnit"`
				} `json:"priceDimensions"`
			} `json:"OnDemand"`
		} `json:"terms"`
	}

	if err := json.Unmarshal([]byte(priceJSON), &item); err != nil {
		return 0, false
	}

	for _, offer := range item.Terms.OnDemand {
		for _, dim := range offer.PriceDimensions {
			if dim.Unit != "Hrs" {
				continue
			}
			usdStr, exists := dim.PricePerUnit["USD"]
			if !exists {
				continue
			}
			p, err := strconv.ParseFloat(usdStr, 64)
			if err != nil || p <= 0 {
				continue
			}
			return p, true
		}
	}
	return 0, false
}

var _ catalogue.Catalogue = (*GPUCatalogue)(nil)
