// Package binance is a client for the Binance public market-data REST API.
//
// The client wraps every call in a shared execution pipeline: a weight-based
// token bucket gates admission, a dispatcher issues the HTTP request, and an
// error classifier folds network, protocol, and exchange-reported failures
// into one taxonomy. Transient failures (network, timeout, rate limit) are
// retried with exponential backoff; terminal failures such as an invalid
// symbol surface immediately.
//
//	config := core.DefaultConfig()
//	client, err := binance.New(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	ticker, err := client.GetTickerPrice(ctx, "BTCUSDT")
//
// Callers never see raw transport errors or HTTP status codes; failures are
// always a *core.Error whose type decides retryability.
package binance
