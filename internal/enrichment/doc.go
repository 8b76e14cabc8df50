// Package enrichment captions linked detail images with a hosted
// vision-language model.
//
// Each record is handled independently by a bounded worker pool: a successful
// caption becomes the record's description and rewrites its link to the hosted
// image, while any failure leaves the record untouched and marks it skipped.
// Failures whose text carries a configured benign marker are skipped quietly;
// all others are logged with the model's request identifier.
package enrichment
