//
// Tencent is pleased to support the open source community by making trpc-artifact-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-artifact-go is licensed under the Apache License Version 2.0.
//
//

package cos

import (
	"net/http"
	"net/url"
	"os"
	"time"

	cos "github.com/tencentyun/cos-go-sdk-v5"
)

// Option configures the COS-backed storage service.
type Option func(*options)

type options struct {
	client     revisionClient
	httpClient *http.Client
	timeout    time.Duration
	secretID   string
	secretKey  string
}

// WithClient uses an already-constructed COS client. Takes precedence over
// the credential and HTTP client options.
func WithClient(client *cos.Client) Option {
	return func(o *options) {
		o.client = &bucketClient{Client: client}
	}
}

// WithHTTPClient sets the HTTP client used for COS requests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithTimeout bounds each COS request.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

// WithSecretID sets the COS secret ID. Defaults to the COS_SECRETID
// environment variable.
func WithSecretID(secretID string) Option {
	return func(o *options) {
		o.secretID = secretID
	}
}

// WithSecretKey sets the COS secret key. Defaults to the COS_SECRETKEY
// environment variable.
func WithSecretKey(secretKey string) Option {
	return func(o *options) {
		o.secretKey = secretKey
	}
}

func buildClient(bucketURL string, opts ...Option) (revisionClient, error) {
	o := &options{
		timeout:   defaultTimeout,
		secretID:  os.Getenv("COS_SECRETID"),
		secretKey: os.Getenv("COS_SECRETKEY"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.client != nil {
		return o.client, nil
	}

	u, err := url.Parse(bucketURL)
	if err != nil {
		return nil, err
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &cos.AuthorizationTransport{
				SecretID:  o.secretID,
				SecretKey: o.secretKey,
			},
		}
	}
	httpClient.Timeout = o.timeout

	return &bucketClient{Client: cos.NewClient(&cos.BaseURL{BucketURL: u}, httpClient)}, nil
}
