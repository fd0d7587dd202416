package rpc

import (
	"context"
	"net/http"
)

// BeaconClient queries a running node's beacon_ API.
type BeaconClient struct {
	URL    string
	Client *http.Client
}

// NewBeaconClient creates a client for the beacon API at url.
func NewBeaconClient(url string) *BeaconClient {
	return &BeaconClient{URL: url}
}

// Status returns the node's head and pending command count.
func (c *BeaconClient) Status(ctx context.Context) (StatusResult, error) {
	var st StatusResult
	err := callJSON(ctx, c.Client, c.URL, "beacon_status", nil, &st)
	return st, err
}

// Campaign returns the campaign at target.
func (c *BeaconClient) Campaign(ctx context.Context, target uint64) (CampaignResult, error) {
	var res CampaignResult
	err := callJSON(ctx, c.Client, c.URL, "beacon_campaign", []interface{}{target}, &res)
	return res, err
}

// Campaigns returns every stored campaign.
func (c *BeaconClient) Campaigns(ctx context.Context) ([]CampaignResult, error) {
	var res []CampaignResult
	err := callJSON(ctx, c.Client, c.URL, "beacon_campaigns", nil, &res)
	return res, err
}

// Secret returns the finalized secret of the campaign at target.
func (c *BeaconClient) Secret(ctx context.Context, target uint64) (uint64, error) {
	var secret uint64
	err := callJSON(ctx, c.Client, c.URL, "beacon_secret", []interface{}{target}, &secret)
	return secret, err
}
