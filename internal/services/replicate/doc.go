// Package replicate provides a Replicate predictions client used to caption
// detail drawings with a hosted vision-language model.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Caption: run the model on an image URL and prompt, returning the
// output fragments in arrival order.
// Client.Run: create a prediction with arbitrary input and wait for it.
//
// # Model References
//
// "owner/name:version" posts to /predictions with the version id;
// "owner/name" posts to the model-scoped endpoint and runs the latest version.
//
// # Retry Behaviour
//
// Create and poll requests retry on HTTP 408/429/5xx and network timeouts with
// exponential backoff (base 1s, max 10s, up to 5 attempts by default). A
// prediction that ends failed or canceled is not retried; it is returned as a
// *PredictionError carrying the prediction id and logs.
package replicate
