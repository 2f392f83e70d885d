package identity

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cognito "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

// CognitoProvider implements Provider on an AWS Cognito user pool.
type CognitoProvider struct {
	client   *cognito.Client
	poolID   string
	clientID string
}

// NewCognitoProvider creates a provider bound to the given user pool.
func NewCognitoProvider(ctx context.Context, region, poolID, clientID string) (*CognitoProvider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &CognitoProvider{
		client:   cognito.NewFromConfig(cfg),
		poolID:   poolID,
		clientID: clientID,
	}, nil
}

// SignUp registers a self-service user; role attributes are assigned later
// by the accounts service.
func (p *CognitoProvider) SignUp(ctx context.Context, email, password, name string) (*SignUpResult, error) {
	out, err := p.client.SignUp(ctx, &cognito.SignUpInput{
		ClientId: aws.String(p.clientID),
		Username: aws.String(email),
		Password: aws.String(password),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
			{Name: aws.String("name"), Value: aws.String(name)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("cognito sign-up failed: %w", err)
	}
	return &SignUpResult{
		IdentityID: aws.ToString(out.UserSub),
		Confirmed:  out.UserConfirmed,
	}, nil
}

// ConfirmSignUp completes email verification with the mailed code.
func (p *CognitoProvider) ConfirmSignUp(ctx context.Context, email, code string) error {
	_, err := p.client.ConfirmSignUp(ctx, &cognito.ConfirmSignUpInput{
		ClientId:         aws.String(p.clientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
	})
	if err != nil {
		return fmt.Errorf("cognito confirm failed: %w", err)
	}
	return nil
}

// SignIn exchanges a password for tokens via USER_PASSWORD_AUTH.
func (p *CognitoProvider) SignIn(ctx context.Context, email, password string) (*Tokens, error) {
	out, err := p.client.InitiateAuth(ctx, &cognito.InitiateAuthInput{
		ClientId: aws.String(p.clientID),
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("cognito sign-in failed: %w", err)
	}
	if out.AuthenticationResult == nil {
		return nil, fmt.Errorf("cognito sign-in returned no authentication result")
	}
	res := out.AuthenticationResult
	return &Tokens{
		AccessToken:  aws.ToString(res.AccessToken),
		IDToken:      aws.ToString(res.IdToken),
		RefreshToken: aws.ToString(res.RefreshToken),
		ExpiresIn:    res.ExpiresIn,
	}, nil
}

// AdminCreateUser provisions a user without sending the welcome mail and
// returns the provider's subject identifier.
func (p *CognitoProvider) AdminCreateUser(ctx context.Context, email, name string, attrs map[string]string, temporaryPassword string) (string, error) {
	userAttrs := []types.AttributeType{
		{Name: aws.String("email"), Value: aws.String(email)},
		{Name: aws.String("email_verified"), Value: aws.String("true")},
		{Name: aws.String("name"), Value: aws.String(name)},
	}
	for k, v := range attrs {
		userAttrs = append(userAttrs, types.AttributeType{Name: aws.String(k), Value: aws.String(v)})
	}
	out, err := p.client.AdminCreateUser(ctx, &cognito.AdminCreateUserInput{
		UserPoolId:        aws.String(p.poolID),
		Username:          aws.String(email),
		TemporaryPassword: aws.String(temporaryPassword),
		MessageAction:     types.MessageActionTypeSuppress,
		UserAttributes:    userAttrs,
	})
	if err != nil {
		return "", fmt.Errorf("cognito admin-create failed: %w", err)
	}
	// The subject claim lives in the "sub" attribute of the created user.
	for _, attr := range out.User.Attributes {
		if aws.ToString(attr.Name) == "sub" {
			return aws.ToString(attr.Value), nil
		}
	}
	return aws.ToString(out.User.Username), nil
}

// UpdateAttributes overwrites attributes on the pool user.
func (p *CognitoProvider) UpdateAttributes(ctx context.Context, email string, attrs map[string]string) error {
	userAttrs := make([]types.AttributeType, 0, len(attrs))
	for k, v := range attrs {
		userAttrs = append(userAttrs, types.AttributeType{Name: aws.String(k), Value: aws.String(v)})
	}
	_, err := p.client.AdminUpdateUserAttributes(ctx, &cognito.AdminUpdateUserAttributesInput{
		UserPoolId:     aws.String(p.poolID),
		Username:       aws.String(email),
		UserAttributes: userAttrs,
	})
	if err != nil {
		return fmt.Errorf("cognito attribute update failed: %w", err)
	}
	return nil
}
