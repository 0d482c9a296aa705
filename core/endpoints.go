package core

import "strings"

type ActivityType string

const (
	ActivityCreateSubOrganization     ActivityType = "ACTIVITY_TYPE_CREATE_SUB_ORGANIZATION"
	ActivityCreateSubOrganizationV7   ActivityType = "ACTIVITY_TYPE_CREATE_SUB_ORGANIZATION_V7"
	ActivityCreateWallet              ActivityType = "ACTIVITY_TYPE_CREATE_WALLET"
	ActivityCreateWalletAccounts      ActivityType = "ACTIVITY_TYPE_CREATE_WALLET_ACCOUNTS"
	ActivityCreateUsers               ActivityType = "ACTIVITY_TYPE_CREATE_USERS_V3"
	ActivityDeleteUsers               ActivityType = "ACTIVITY_TYPE_DELETE_USERS"
	ActivityCreateAPIKeys             ActivityType = "ACTIVITY_TYPE_CREATE_API_KEYS_V2"
	ActivityCreateAuthenticators      ActivityType = "ACTIVITY_TYPE_CREATE_AUTHENTICATORS_V2"
	ActivityCreatePolicy              ActivityType = "ACTIVITY_TYPE_CREATE_POLICY_V3"
	ActivitySignTransaction           ActivityType = "ACTIVITY_TYPE_SIGN_TRANSACTION_V2"
	ActivitySignRawPayload            ActivityType = "ACTIVITY_TYPE_SIGN_RAW_PAYLOAD_V2"
	ActivityExportWallet              ActivityType = "ACTIVITY_TYPE_EXPORT_WALLET"
	ActivityExportWalletAccount       ActivityType = "ACTIVITY_TYPE_EXPORT_WALLET_ACCOUNT"
	ActivityStampLogin                ActivityType = "ACTIVITY_TYPE_STAMP_LOGIN"
	ActivityCreateReadWriteSession    ActivityType = "ACTIVITY_TYPE_CREATE_READ_WRITE_SESSION_V2"
	ActivityInitOTPAuth               ActivityType = "ACTIVITY_TYPE_INIT_OTP_AUTH_V2"
	ActivityOTPAuth                   ActivityType = "ACTIVITY_TYPE_OTP_AUTH"
	ActivityEmailAuth                 ActivityType = "ACTIVITY_TYPE_EMAIL_AUTH_V2"
	ActivityOAuth                     ActivityType = "ACTIVITY_TYPE_OAUTH"
	ActivityUpdateRootQuorum          ActivityType = "ACTIVITY_TYPE_UPDATE_ROOT_QUORUM"
	ActivityApproveActivity           ActivityType = "ACTIVITY_TYPE_APPROVE_ACTIVITY"
	ActivityRejectActivity            ActivityType = "ACTIVITY_TYPE_REJECT_ACTIVITY"
	ActivityCreatePrivateKeys         ActivityType = "ACTIVITY_TYPE_CREATE_PRIVATE_KEYS_V2"
	ActivitySetOrganizationFeature    ActivityType = "ACTIVITY_TYPE_SET_ORGANIZATION_FEATURE"
	ActivityRemoveOrganizationFeature ActivityType = "ACTIVITY_TYPE_REMOVE_ORGANIZATION_FEATURE"
)

const DefaultActivityEndpoint = "/activity"

// Endpoint maps the activity type to its URL path suffix. Unknown types
// resolve to DefaultActivityEndpoint.
func (t ActivityType) Endpoint() string {
	switch t {
	case ActivityCreateSubOrganization, ActivityCreateSubOrganizationV7:
		return "/create_sub_organization"
	case ActivityCreateWallet:
		return "/create_wallet"
	case ActivityCreateWalletAccounts:
		return "/create_wallet_accounts"
	case ActivityCreateUsers:
		return "/create_users"
	case ActivityDeleteUsers:
		return "/delete_users"
	case ActivityCreateAPIKeys:
		return "/create_api_keys"
	case ActivityCreateAuthenticators:
		return "/create_authenticators"
	case ActivityCreatePolicy:
		return "/create_policy"
	case ActivitySignTransaction:
		return "/sign_transaction"
	case ActivitySignRawPayload:
		return "/sign_raw_payload"
	case ActivityExportWallet:
		return "/export_wallet"
	case ActivityExportWalletAccount:
		return "/export_wallet_account"
	case ActivityStampLogin:
		return "/stamp_login"
	case ActivityCreateReadWriteSession:
		return "/create_read_write_session"
	case ActivityInitOTPAuth:
		return "/init_otp_auth"
	case ActivityOTPAuth:
		return "/otp_auth"
	case ActivityEmailAuth:
		return "/email_auth"
	case ActivityOAuth:
		return "/oauth"
	case ActivityUpdateRootQuorum:
		return "/update_root_quorum"
	case ActivityApproveActivity:
		return "/approve_activity"
	case ActivityRejectActivity:
		return "/reject_activity"
	case ActivityCreatePrivateKeys:
		return "/create_private_keys"
	case ActivitySetOrganizationFeature:
		return "/set_organization_feature"
	case ActivityRemoveOrganizationFeature:
		return "/remove_organization_feature"
	default:
		return DefaultActivityEndpoint
	}
}

// Known reports whether the type has a dedicated endpoint.
func (t ActivityType) Known() bool {
	return t.Endpoint() != DefaultActivityEndpoint
}

func ResolveEndpoint(activityType string) string {
	return ActivityType(strings.TrimSpace(activityType)).Endpoint()
}
