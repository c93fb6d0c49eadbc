package content

import (
	"context"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/keithlinneman/staticrouter/internal/pathutil"
	"github.com/keithlinneman/staticrouter/internal/xerrors"
)

// SSMAPI is the part of *ssm.Client ReleasePrefix uses.
type SSMAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ReleasePrefix reads the current content release name from an SSM parameter
// and joins it onto base, so publishing a new release is a parameter update.
// SecureString parameters are decrypted. An empty or unsafe value is an error.
func ReleasePrefix(ctx context.Context, client SSMAPI, param, base string) (string, error) {
	if client == nil {
		return "", xerrors.New("ssm client is required")
	}
	if param == "" {
		return "", xerrors.New("ssm parameter name is required")
	}
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(param),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", xerrors.Wrapf(err, "get ssm parameter %s", param)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", xerrors.Newf("ssm parameter %s has no value", param)
	}

	release := strings.Trim(strings.TrimSpace(*out.Parameter.Value), "/")
	if release == "" {
		return "", xerrors.Newf("ssm parameter %s is empty", param)
	}
	if pathutil.HasDotSegments(release) {
		return "", xerrors.Newf("ssm parameter %s: release %q must not contain . or .. segments", param, release)
	}

	base = strings.Trim(base, "/")
	if base == "" {
		return release, nil
	}
	return path.Join(base, release), nil
}
