package keychain

// Fixed key names for the AWS SSO access-info bundle. The four entries
// together form one logical credential; a missing or unparseable
// AWS_SSO_EXPIRATION_TIME makes the whole bundle count as absent.
const (
	KeyAWSSSORegion         = "AWS_SSO_REGION"
	KeyAWSSSOPortalURL      = "AWS_SSO_PORTAL_URL"
	KeyAWSSSOAccessToken    = "AWS_SSO_ACCESS_TOKEN"
	KeyAWSSSOExpirationTime = "AWS_SSO_EXPIRATION_TIME"
)

// PlainSessionTokenKey names the cached session token for a plain AWS account.
func PlainSessionTokenKey(accountName string) string {
	return "plain-account-session-token-" + accountName
}

// PlainSessionTokenExpirationKey names the expiration timestamp paired with
// PlainSessionTokenKey.
func PlainSessionTokenExpirationKey(accountName string) string {
	return "plain-account-session-token-expiration-" + accountName
}

// TrusterSessionTokenKey names the cached session token for a truster account.
func TrusterSessionTokenKey(accountName string) string {
	return "truster-account-session-token-" + accountName
}

// TrusterSessionTokenExpirationKey names the expiration timestamp paired with
// TrusterSessionTokenKey.
func TrusterSessionTokenExpirationKey(accountName string) string {
	return "truster-account-session-token-expiration-" + accountName
}

// PlainAccessKeyIDKey names the long-lived access key id for a plain AWS
// account.
func PlainAccessKeyIDKey(accountName string) string {
	return "plain-account-access-key-id-" + accountName
}

// PlainSecretAccessKeyKey names the long-lived secret access key for a plain
// AWS account.
func PlainSecretAccessKeyKey(accountName string) string {
	return "plain-account-secret-access-key-" + accountName
}

// AzureAccessTokenKey names the cached management token for an Azure account.
func AzureAccessTokenKey(accountName string) string {
	return "azure-access-token-" + accountName
}

// AzureAccessTokenExpirationKey names the expiration timestamp paired with
// AzureAccessTokenKey.
func AzureAccessTokenExpirationKey(accountName string) string {
	return "azure-access-token-expiration-" + accountName
}

// SSMDataKey names the per-profile SSM session data entry. The legacy prefix
// is kept for compatibility with stores written by earlier versions.
func SSMDataKey(profileID string) string {
	return "Leapp-ssm-data-" + profileID
}
