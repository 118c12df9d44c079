package business

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/oko-market/oko-client/internal/cmdutils"
	"github.com/oko-market/oko-client/internal/config"
	"github.com/oko-market/oko-client/pkg/apiclient"
	"github.com/oko-market/oko-client/pkg/marketplace"
)

var callMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

type CallInput struct {
	Method string
	Path   string
	// Data is a JSON body, or "-" to read it from stdin.
	Data   string
	Query  map[string]string
	Output string
}

// CallMain sends one authenticated request and prints the response data.
func CallMain(ctx context.Context, cfg *config.Config, inv cmdutils.Invocation, in CallInput) error {
	method := strings.ToUpper(in.Method)
	if !slices.Contains(callMethods, method) {
		return fmt.Errorf("unsupported method %q", in.Method)
	}

	var body any
	if in.Data != "" {
		raw, err := requestBody(in.Data, inv.In)
		if err != nil {
			return err
		}
		body = raw
	}

	opts := make([]apiclient.RequestOption, 0, len(in.Query))
	for k, v := range in.Query {
		opts = append(opts, apiclient.WithQuery(k, v))
	}

	client, closeFn, err := initClient(ctx, cfg, inv.Out)
	if err != nil {
		return err
	}
	defer closeFn()

	env, err := client.Do(ctx, method, in.Path, body, opts...)
	if err != nil {
		return explain(inv.Out, err)
	}
	if !env.HasData() {
		_, err = fmt.Fprintln(inv.Out, env.Message)
		return err
	}

	return render(inv.Out, in.Output, env.Data)
}

func requestBody(data string, in io.Reader) (json.RawMessage, error) {
	raw := []byte(data)
	if data == "-" {
		if in == nil {
			return nil, errors.New("no request body on stdin")
		}

		var err error
		raw, err = io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
	}
	if !json.Valid(raw) {
		return nil, errors.New("request body is not valid JSON")
	}

	return json.RawMessage(raw), nil
}

type lister func(ctx context.Context, api marketplace.API) (any, error)

var listers = map[string]lister{
	marketplace.ResourceProducts: func(ctx context.Context, api marketplace.API) (any, error) {
		return marketplace.NewProducts(api).Fetch(ctx)
	},
	marketplace.ResourceRequests: func(ctx context.Context, api marketplace.API) (any, error) {
		return marketplace.NewRequests(api).Fetch(ctx)
	},
	marketplace.ResourceNotifications: func(ctx context.Context, api marketplace.API) (any, error) {
		return marketplace.NewNotifications(api).Fetch(ctx)
	},
	marketplace.ResourceDisputes: func(ctx context.Context, api marketplace.API) (any, error) {
		return marketplace.NewDisputes(api).Fetch(ctx)
	},
	marketplace.ResourceInventory: func(ctx context.Context, api marketplace.API) (any, error) {
		return marketplace.NewInventory(api).Fetch(ctx)
	},
	"users": func(ctx context.Context, api marketplace.API) (any, error) {
		return marketplace.NewModeration(api).Fetch(ctx)
	},
}

// ListResources returns the resource names accepted by ListMain.
func ListResources() []string {
	names := make([]string, 0, len(listers))
	for name := range listers {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}

func ListMain(ctx context.Context, cfg *config.Config, inv cmdutils.Invocation, resource, output string) error {
	list, ok := listers[resource]
	if !ok {
		return fmt.Errorf("unknown resource %q, expected one of %s", resource, strings.Join(ListResources(), ", "))
	}

	client, closeFn, err := initClient(ctx, cfg, inv.Out)
	if err != nil {
		return err
	}
	defer closeFn()

	items, err := list(ctx, client)
	if err != nil {
		return explain(inv.Out, err)
	}

	return render(inv.Out, output, items)
}
