package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on requests that need an authenticated caller.
const AccessTokenHeaderName = "access_token"

// AccessTokenEnvName lets the CLI pick up a token without a flag.
const AccessTokenEnvName = "ACCOUNTKEEPER_TOKEN"
