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
	"bytes"
	"context"
	"io"

	cos "github.com/tencentyun/cos-go-sdk-v5"
)

// revisionClient is the narrow slice of the object storage API that
// revision persistence needs. Keeping it this small lets tests swap in an
// in-memory implementation.
type revisionClient interface {
	// ListKeys returns the object keys under a prefix.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	// Put stores one object.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get fetches one object's bytes.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes one object.
	Delete(ctx context.Context, key string) error
}

type bucketClient struct {
	*cos.Client
}

func (c *bucketClient) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	result, _, err := c.Client.Bucket.Get(ctx, &cos.BucketGetOptions{Prefix: prefix})
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(result.Contents))
	for _, obj := range result.Contents {
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

func (c *bucketClient) Put(ctx context.Context, key string, data []byte, contentType string) error {
	opt := &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{
			ContentType: contentType,
		},
	}
	_, err := c.Client.Object.Put(ctx, key, bytes.NewReader(data), opt)
	return err
}

func (c *bucketClient) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := c.Client.Object.Get(ctx, key, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (c *bucketClient) Delete(ctx context.Context, key string) error {
	_, err := c.Client.Object.Delete(ctx, key)
	return err
}
