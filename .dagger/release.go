package main

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"dagger/docqa/internal/dagger"
)

// releaseArches are the linux architectures Build produces.
var releaseArches = []string{"amd64", "arm64"}

// packageScript tars each linux/<arch> binary and writes SHA256SUMS.
const packageScript = `set -eu
for arch in $ARCHES; do
	tar -C "/bin-in/linux/$arch" -czf "docqa_${VERSION}_linux_${arch}.tar.gz" docqa
done
sha256sum *.tar.gz > SHA256SUMS
`

// bucket is an S3-compatible bucket the release artifacts go to.
type bucket struct {
	endpoint        *dagger.Secret
	name            *dagger.Secret
	accessKeyId     *dagger.Secret
	secretAccessKey *dagger.Secret
}

// Package builds release binaries and returns one docqa_<version>_linux_<arch>.tar.gz
// per architecture plus a SHA256SUMS file
func (d *Docqa) Package(
	ctx context.Context,

	// Version string embedded in the binary and the archive names
	version string,

	// Git commit SHA
	commit string,
) *dagger.Directory {
	return dag.Container().
		From("alpine:3.20").
		WithDirectory("/bin-in", d.BuildRelease(ctx, version, commit)).
		WithEnvVariable("VERSION", version).
		WithEnvVariable("ARCHES", strings.Join(releaseArches, " ")).
		WithWorkdir("/out").
		WithExec([]string{"sh", "-c", packageScript}).
		Directory("/out")
}

// Release packages a tagged version, uploads it under releases/<version>/ and
// then points releases/latest at it
func (d *Docqa) Release(
	ctx context.Context,

	// Version tag (e.g., "v0.3.0")
	version string,

	// Git commit SHA
	commit string,

	// Bucket endpoint URL
	endpoint *dagger.Secret,

	// Bucket name
	bucketName *dagger.Secret,

	// Bucket access key ID
	accessKeyId *dagger.Secret,

	// Bucket secret access key
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	b := &bucket{endpoint: endpoint, name: bucketName, accessKeyId: accessKeyId, secretAccessKey: secretAccessKey}
	return d.publish(ctx, b, "releases", version, commit)
}

// Nightly packages the given commit as nightly-<date>-<sha> and uploads it
// under nightly/, moving nightly/latest along
func (d *Docqa) Nightly(
	ctx context.Context,

	// Git commit SHA
	commit string,

	// Bucket endpoint URL
	endpoint *dagger.Secret,

	// Bucket name
	bucketName *dagger.Secret,

	// Bucket access key ID
	accessKeyId *dagger.Secret,

	// Bucket secret access key
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	short := commit
	if len(short) > 7 {
		short = short[:7]
	}
	version := fmt.Sprintf("nightly-%s-%s", time.Now().UTC().Format("20060102"), short)

	b := &bucket{endpoint: endpoint, name: bucketName, accessKeyId: accessKeyId, secretAccessKey: secretAccessKey}
	return d.publish(ctx, b, "nightly", version, commit)
}

// publish uploads the packaged version under <channel>/<version>/ and only
// then rewrites <channel>/latest, so the pointer never names a partial upload.
func (d *Docqa) publish(ctx context.Context, b *bucket, channel, version, commit string) (*dagger.Directory, error) {
	artifacts := d.Package(ctx, version, commit)

	if err := b.sync(ctx, artifacts, path.Join(channel, version)); err != nil {
		return artifacts, fmt.Errorf("uploading %s %s: %w", channel, version, err)
	}

	pointer := dag.Directory().WithNewFile("latest", version+"\n")
	if err := b.sync(ctx, pointer, channel); err != nil {
		return artifacts, fmt.Errorf("moving %s/latest to %s: %w", channel, version, err)
	}

	return artifacts, nil
}

// sync copies dir into the bucket under prefix with the AWS CLI.
func (b *bucket) sync(ctx context.Context, dir *dagger.Directory, prefix string) error {
	name, err := b.name.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("reading bucket name: %w", err)
	}
	endpoint, err := b.endpoint.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("reading bucket endpoint: %w", err)
	}

	_, err = dag.Container().
		From("amazon/aws-cli:latest").
		WithSecretVariable("AWS_ACCESS_KEY_ID", b.accessKeyId).
		WithSecretVariable("AWS_SECRET_ACCESS_KEY", b.secretAccessKey).
		WithEnvVariable("AWS_DEFAULT_REGION", "auto").
		WithDirectory("/upload", dir).
		WithWorkdir("/upload").
		WithExec([]string{
			"aws", "s3", "sync", ".",
			"s3://" + path.Join(name, prefix),
			"--endpoint-url", endpoint,
		}).
		Sync(ctx)
	return err
}
