package api_test

import (
	"context"
	"fmt"
	"net/http/httptest"

	"github.com/jonwraymond/abclient/api"
	"github.com/jonwraymond/abclient/auth"
	"github.com/jonwraymond/abclient/config"
	"github.com/jonwraymond/abclient/mockapi"
	"github.com/jonwraymond/abclient/transport"
)

func ExampleClient_ListExperiments() {
	srv := mockapi.New()
	fixture := srv.Seed()
	ts := httptest.NewServer(srv)
	defer ts.Close()

	rt := config.NewRuntimeSource()
	rt.Set(config.KeyAPIBaseURL, ts.URL)
	store := auth.NewMemoryStore(auth.Session{APIKey: fixture.APIKey})
	client := api.New(transport.New(config.NewChain(rt), store), nil)

	page, err := client.ListExperiments(context.Background(), api.ExperimentFilter{Status: "LIVE"})
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, e := range page.Items {
		fmt.Println(e.Name, e.Status)
	}
	// Output: Checkout button color LIVE
}
