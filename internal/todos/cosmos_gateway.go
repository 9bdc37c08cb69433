package todos

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
	"github.com/cenkalti/backoff/v5"
)

const listQuery = "SELECT * FROM c"

// cosmosContainer is the part of *azcosmos.ContainerClient the gateway uses.
type cosmosContainer interface {
	Read(ctx context.Context, o *azcosmos.ReadContainerOptions) (azcosmos.ContainerResponse, error)
	NewQueryItemsPager(query string, partitionKey azcosmos.PartitionKey, o *azcosmos.QueryOptions) *runtime.Pager[azcosmos.QueryItemsResponse]
	CreateItem(ctx context.Context, partitionKey azcosmos.PartitionKey, item []byte, o *azcosmos.ItemOptions) (azcosmos.ItemResponse, error)
	ReadItem(ctx context.Context, partitionKey azcosmos.PartitionKey, itemID string, o *azcosmos.ItemOptions) (azcosmos.ItemResponse, error)
	ReplaceItem(ctx context.Context, partitionKey azcosmos.PartitionKey, itemID string, item []byte, o *azcosmos.ItemOptions) (azcosmos.ItemResponse, error)
	DeleteItem(ctx context.Context, partitionKey azcosmos.PartitionKey, itemID string, o *azcosmos.ItemOptions) (azcosmos.ItemResponse, error)
}

type CosmosOptions struct {
	Endpoint  string
	Database  string
	Container string
	// ProbeTries bounds the start-up container probe. Zero means 3.
	ProbeTries uint
}

// CosmosGateway stores each todo as one document whose id is also its
// partition key.
type CosmosGateway struct {
	container cosmosContainer
}

// NewCosmosGateway resolves the default Azure credential chain, binds the
// container and probes it. Any error here means the store is unavailable for
// the life of the process.
func NewCosmosGateway(ctx context.Context, opts CosmosOptions) (*CosmosGateway, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("cosmos endpoint is not configured")
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve azure credential: %w", err)
	}
	client, err := azcosmos.NewClient(opts.Endpoint, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create cosmos client: %w", err)
	}
	container, err := client.NewContainer(opts.Database, opts.Container)
	if err != nil {
		return nil, fmt.Errorf("bind container %s/%s: %w", opts.Database, opts.Container, err)
	}

	g := &CosmosGateway{container: container}
	if err := g.probe(ctx, opts, backoff.NewExponentialBackOff()); err != nil {
		return nil, err
	}
	return g, nil
}

// probe reads the container properties. Missing database/container and
// credential failures are not retried.
func (g *CosmosGateway) probe(ctx context.Context, opts CosmosOptions, b backoff.BackOff) error {
	tries := opts.ProbeTries
	if tries == 0 {
		tries = 3
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		_, err := g.container.Read(ctx, nil)
		if err == nil {
			return struct{}{}, nil
		}
		if isCosmosNotFound(err) {
			return struct{}{}, backoff.Permanent(fmt.Errorf("database %q or container %q not found: %w", opts.Database, opts.Container, err))
		}
		var authErr *azidentity.AuthenticationFailedError
		if errors.As(err, &authErr) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(tries))
	return err
}

func (g *CosmosGateway) List(ctx context.Context) ([]Todo, error) {
	pager := g.container.NewQueryItemsPager(listQuery, azcosmos.NewPartitionKey(), nil)

	out := []Todo{}
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, classifyCosmos("list", err)
		}
		for _, item := range page.Items {
			t, err := decodeDocument(item)
			if err != nil {
				return nil, gatewayErr("list", err)
			}
			out = append(out, t)
		}
	}
	return out, nil
}

func (g *CosmosGateway) Create(ctx context.Context, t Todo) error {
	body, err := encodeDocument(t)
	if err != nil {
		return gatewayErr("create", err)
	}
	_, err = g.container.CreateItem(ctx, azcosmos.NewPartitionKeyString(t.ID), body, nil)
	return classifyCosmos("create", err)
}

func (g *CosmosGateway) Read(ctx context.Context, id string) (Todo, error) {
	resp, err := g.container.ReadItem(ctx, azcosmos.NewPartitionKeyString(id), id, nil)
	if err != nil {
		return Todo{}, classifyCosmos("read", err)
	}
	t, err := decodeDocument(resp.Value)
	if err != nil {
		return Todo{}, gatewayErr("read", err)
	}
	return t, nil
}

func (g *CosmosGateway) Replace(ctx context.Context, t Todo) error {
	body, err := encodeDocument(t)
	if err != nil {
		return gatewayErr("replace", err)
	}
	_, err = g.container.ReplaceItem(ctx, azcosmos.NewPartitionKeyString(t.ID), t.ID, body, nil)
	return classifyCosmos("replace", err)
}

func (g *CosmosGateway) Delete(ctx context.Context, id string) error {
	_, err := g.container.DeleteItem(ctx, azcosmos.NewPartitionKeyString(id), id, nil)
	return classifyCosmos("delete", err)
}

func classifyCosmos(op string, err error) error {
	if err == nil {
		return nil
	}
	if isCosmosNotFound(err) {
		return ErrNotFound
	}
	return gatewayErr(op, err)
}

func isCosmosNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}
