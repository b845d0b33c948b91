package s3client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"

	appConfig "remoteops/config"
)

type fakeObject struct {
	data     []byte
	modified time.Time
}

// fakeS3 is an in-memory object store covering the calls Client makes.
// Listings are served pageSize keys at a time with numeric continuation
// tokens; GetObject honours the Range header the downloader sends.
type fakeS3 struct {
	mu        sync.Mutex
	buckets   map[string]map[string]fakeObject
	created   map[string]time.Time
	region    string
	pageSize  int
	listCalls int
	// failListAfter makes the listing fail once this many pages were served.
	failListAfter int
	getErrs       map[string]error
	putErrs       map[string]error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		buckets:       map[string]map[string]fakeObject{},
		created:       map[string]time.Time{},
		pageSize:      1000,
		failListAfter: -1,
		getErrs:       map[string]error{},
		putErrs:       map[string]error{},
	}
}

func (f *fakeS3) addBucket(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.buckets[name]; !ok {
		f.buckets[name] = map[string]fakeObject{}
		f.created[name] = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	}
}

func (f *fakeS3) put(bucket, key string, data []byte) {
	f.addBucket(bucket)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buckets[bucket][key] = fakeObject{data: data, modified: time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)}
}

func (f *fakeS3) putSized(bucket, key string, size int) {
	f.put(bucket, key, bytes.Repeat([]byte{'x'}, size))
}

func (f *fakeS3) object(bucket, key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.buckets[bucket][key]
	return obj.data, ok
}

func (f *fakeS3) keys(bucket string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.buckets[bucket] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func apiError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code + " (fake)"}
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failListAfter >= 0 && f.listCalls >= f.failListAfter {
		f.listCalls++
		return nil, apiError("InternalError")
	}
	f.listCalls++

	objects, ok := f.buckets[aws.ToString(params.Bucket)]
	if !ok {
		return nil, apiError("NoSuchBucket")
	}

	prefix := aws.ToString(params.Prefix)
	var keys []string
	for k := range objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	startIdx := 0
	if token := aws.ToString(params.ContinuationToken); token != "" {
		n, err := strconv.Atoi(token)
		if err != nil {
			return nil, apiError("InvalidArgument")
		}
		startIdx = n
	}
	end := startIdx + f.pageSize
	if end > len(keys) {
		end = len(keys)
	}

	out := &s3.ListObjectsV2Output{KeyCount: aws.Int32(int32(end - startIdx))}
	for _, k := range keys[startIdx:end] {
		obj := objects[k]
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(obj.data))),
			LastModified: aws.Time(obj.modified),
		})
	}
	if end < len(keys) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	} else {
		out.IsTruncated = aws.Bool(false)
	}
	return out, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := aws.ToString(params.Key)
	if err, ok := f.getErrs[key]; ok {
		return nil, err
	}
	obj, ok := f.buckets[aws.ToString(params.Bucket)][key]
	if !ok {
		return nil, apiError("NoSuchKey")
	}

	size := int64(len(obj.data))
	start, end := int64(0), size-1
	if rng := aws.ToString(params.Range); rng != "" {
		if _, err := fmt.Sscanf(rng, "bytes=%d-%d", &start, &end); err != nil {
			return nil, apiError("InvalidRange")
		}
		if end >= size {
			end = size - 1
		}
	}

	body := obj.data[start : end+1]
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: aws.Int64(int64(len(body))),
		ContentRange:  aws.String(fmt.Sprintf("bytes %d-%d/%d", start, end, size)),
		LastModified:  aws.Time(obj.modified),
	}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(params.Key)
	f.mu.Lock()
	err, fail := f.putErrs[key]
	f.mu.Unlock()
	if fail {
		return nil, err
	}

	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.put(aws.ToString(params.Bucket), key, data)
	return &s3.PutObjectOutput{}, nil
}

var errMultipart = errors.New("multipart uploads are not supported by the fake")

func (f *fakeS3) UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errMultipart
}

func (f *fakeS3) CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errMultipart
}

func (f *fakeS3) CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errMultipart
}

func (f *fakeS3) AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return &s3.AbortMultipartUploadOutput{}, nil
}

func (f *fakeS3) GetBucketLocation(ctx context.Context, params *s3.GetBucketLocationInput, optFns ...func(*s3.Options)) (*s3.GetBucketLocationOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.buckets[aws.ToString(params.Bucket)]; !ok {
		return nil, apiError("NoSuchBucket")
	}
	return &s3.GetBucketLocationOutput{LocationConstraint: types.BucketLocationConstraint(f.region)}, nil
}

func (f *fakeS3) ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &s3.ListBucketsOutput{}
	for name, created := range f.created {
		out.Buckets = append(out.Buckets, types.Bucket{Name: aws.String(name), CreationDate: aws.Time(created)})
	}
	return out, nil
}

func newTestClient(api *fakeS3) *Client {
	return newWithAPI(api, &appConfig.Config{Region: "us-east-2", ApiURL: "https://objects.example.test"})
}
