package services

import (
	"context"
	"errors"
	"time"

	"github.com/authgate/authgate/internal/config"
	"github.com/authgate/authgate/internal/models"
	"github.com/authgate/authgate/internal/services/identity"
	"github.com/authgate/authgate/internal/utils"
	"github.com/authgate/authgate/pkg/logger"
	"gorm.io/gorm"
)

// AuthService orchestrates the token lifecycle: credential verification,
// pair issuance, per-request validation, rotation and revocation. It keeps
// no state between calls; every validity decision is a fresh read against
// the ledger.
type AuthService struct {
	db       *gorm.DB
	tokens   *TokenService
	ledger   *LedgerService
	registry *identity.Registry
	ldap     *LDAPService
	audit    *AuditService
}

func NewAuthService(db *gorm.DB, cfg *config.Config, audit *AuditService) *AuthService {
	return &AuthService{
		db:       db,
		tokens:   NewTokenService(db, &cfg.JWT),
		ledger:   NewLedgerService(db),
		registry: identity.NewRegistry(&cfg.Providers),
		ldap:     NewLDAPService(&cfg.LDAP),
		audit:    audit,
	}
}

// Resolvers exposes the provider registry so alternative resolvers can be
// installed.
func (s *AuthService) Resolvers() *identity.Registry {
	return s.registry
}

// Principal is the authenticated identity threaded through a request: the
// freshly-loaded user plus the jti of the token that authenticated it. The
// jti lives here, never on the user record.
type Principal struct {
	User *models.User
	JTI  string
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	AuthType string `json:"auth_type"` // local, ldap
}

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type SocialLoginRequest struct {
	Provider string `json:"provider" binding:"required"`
	Code     string `json:"code"`  // authorization code (google, github)
	Token    string `json:"token"` // provider access token (facebook)
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// LoginResult is returned by every flow that ends in a fresh pair.
type LoginResult struct {
	User *models.User `json:"user"`
	Pair *IssuedPair  `json:"authentication"`
}

// Login verifies a password (or directory) credential and issues a pair.
func (s *AuthService) Login(req *LoginRequest, clientIP, userAgent string) (*LoginResult, error) {
	if req.AuthType == "" {
		req.AuthType = models.AuthTypeLocal
	}

	var user *models.User
	var err error

	switch req.AuthType {
	case models.AuthTypeLocal:
		user, err = s.localAuth(req.Email, req.Password)
	case models.AuthTypeLDAP:
		user, err = s.ldapAuth(req.Email, req.Password)
	default:
		err = ErrInvalidCredentials
	}

	if err != nil {
		s.audit.Warning(AuditLoginFailed, "login rejected for "+req.Email, nil, "", clientIP, userAgent)
		return nil, err
	}

	return s.finishLogin(user, AuditLogin, clientIP, userAgent)
}

// SocialLogin resolves a third-party handshake into an identity, applies the
// account-linking policy and issues a pair. A nil identity from the resolver
// means the provider rejected the handshake; that is an authentication
// failure, not an internal error.
func (s *AuthService) SocialLogin(ctx context.Context, provider identity.Provider, credential, clientIP, userAgent string) (*LoginResult, error) {
	resolved, err := s.registry.Resolve(ctx, provider, credential)
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		s.audit.Warning(AuditLoginFailed, "social handshake rejected by "+string(provider), nil, "", clientIP, userAgent)
		return nil, ErrInvalidCredentials
	}

	var user models.User
	err = s.db.Where("email = ?", resolved.Email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Email:      resolved.Email,
			FirstName:  resolved.FirstName,
			LastName:   resolved.LastName,
			Avatar:     resolved.Avatar,
			Role:       "user",
			AuthType:   string(resolved.Provider),
			ProviderID: resolved.SubjectID,
			IsActive:   true,
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if conflict := s.linkConflict(&user, resolved.Provider); conflict != nil {
			s.audit.Warning(AuditAccountConflict, conflict.Error(), &user.ID, "", clientIP, userAgent)
			return nil, conflict
		}
		if !user.IsActive {
			return nil, ErrUserDisabled
		}
		// same provider: refresh the stored profile from the handshake
		user.FirstName = resolved.FirstName
		user.LastName = resolved.LastName
		user.Avatar = resolved.Avatar
		user.ProviderID = resolved.SubjectID
		if err := s.db.Save(&user).Error; err != nil {
			return nil, err
		}
	}

	return s.finishLogin(&user, AuditSocialLogin, clientIP, userAgent)
}

// linkConflict enforces the account-linking policy: an email already bound to
// another auth method must not be hijacked by a social login. The conflicting
// method is named generically.
func (s *AuthService) linkConflict(user *models.User, provider identity.Provider) *AccountConflictError {
	switch user.AuthType {
	case models.AuthTypeLocal:
		return &AccountConflictError{ExistingMethod: "password account"}
	case models.AuthTypeLDAP:
		return &AccountConflictError{ExistingMethod: "directory account"}
	case string(provider):
		return nil
	default:
		return &AccountConflictError{ExistingMethod: "different social provider"}
	}
}

// Register creates a password account and issues its first pair.
func (s *AuthService) Register(req *RegisterRequest, clientIP, userAgent string) (*LoginResult, error) {
	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:     req.Email,
		Password:  hashed,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      "user",
		AuthType:  models.AuthTypeLocal,
		IsActive:  true,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}

	return s.finishLogin(&user, AuditRegister, clientIP, userAgent)
}

// Refresh exchanges a valid refresh token for a brand-new pair. The old pair
// is revoked before the new one is issued, so a concurrent reader can never
// observe both as valid. Under concurrent rotation of the same token the
// conditional revoke decides the winner and the loser gets ErrInvalidToken.
func (s *AuthService) Refresh(userID uint, refreshToken, clientIP, userAgent string) (*LoginResult, error) {
	if refreshToken == "" {
		return nil, ErrInvalidToken
	}

	stored, err := s.ledger.FindRefreshByHash(utils.HashToken(refreshToken))
	if err != nil {
		return nil, err
	}
	if stored == nil || stored.Revoked || time.Now().After(stored.ExpiresAt) {
		return nil, ErrInvalidToken
	}
	if stored.AccessToken.ID == "" || stored.AccessToken.UserID != userID {
		return nil, ErrInvalidToken
	}

	// fresh read: a deleted user must not rotate, even with a live token
	var user models.User
	if err := s.db.First(&user, stored.AccessToken.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}

	// revoke both members of the old pair as one unit, then reissue
	if err := s.ledger.RevokePair(stored.ID, stored.AccessTokenID); err != nil {
		if errors.Is(err, ErrInvalidToken) {
			s.audit.Warning(AuditRotationDenied, "stale refresh token presented", &user.ID, stored.AccessTokenID, clientIP, userAgent)
			return nil, ErrInvalidToken
		}
		s.audit.Failure(AuditRevokeFailed, "failed to revoke pair during rotation", &user.ID, stored.AccessTokenID, err)
		return nil, err
	}

	pair, err := s.tokens.Issue(&user, clientIP, userAgent)
	if err != nil {
		return nil, err
	}

	s.audit.Info(AuditRotation, "token pair rotated", &user.ID, pair.JTI, clientIP, userAgent)
	return &LoginResult{User: &user, Pair: pair}, nil
}

// Authenticate is the per-request guard. Signature and claim expiry are
// checked first (no storage access); then the ledger record and finally the
// owning user are read fresh. It never mutates ledger state.
func (s *AuthService) Authenticate(signedToken string) (*Principal, error) {
	claims, err := utils.ParseToken(signedToken)
	if err != nil {
		return nil, ErrUnauthorized
	}

	record, err := s.ledger.FindAccess(claims.ID)
	if err != nil {
		return nil, err
	}
	// the persisted expiry guards against skew between signer and ledger
	if record == nil || record.Revoked || time.Now().After(record.ExpiresAt) {
		return nil, ErrUnauthorized
	}

	var user models.User
	if err := s.db.First(&user, record.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUnauthorized
	}

	return &Principal{User: &user, JTI: claims.ID}, nil
}

// Logout revokes the presented token's pair. The revoke is synchronous: a
// storage failure is returned to the caller and recorded, never dropped.
func (s *AuthService) Logout(principal *Principal, clientIP, userAgent string) error {
	if err := s.ledger.RevokeByJTI(principal.JTI); err != nil {
		s.audit.Failure(AuditRevokeFailed, "failed to revoke pair on logout", &principal.User.ID, principal.JTI, err)
		return err
	}
	s.audit.Info(AuditLogout, "user logged out", &principal.User.ID, principal.JTI, clientIP, userAgent)
	return nil
}

// LogoutAll revokes every pair the user owns except the one currently in use
// ("sign out everywhere but here").
func (s *AuthService) LogoutAll(principal *Principal, clientIP, userAgent string) error {
	if err := s.ledger.RevokeAllForUser(principal.User.ID, principal.JTI); err != nil {
		s.audit.Failure(AuditRevokeFailed, "failed to revoke all pairs", &principal.User.ID, principal.JTI, err)
		return err
	}
	s.audit.Info(AuditLogoutAll, "user logged out everywhere", &principal.User.ID, principal.JTI, clientIP, userAgent)
	return nil
}

// RevokeSession revokes one of the user's own sessions by jti.
func (s *AuthService) RevokeSession(principal *Principal, jti string) error {
	record, err := s.ledger.FindAccess(jti)
	if err != nil {
		return err
	}
	if record == nil || record.UserID != principal.User.ID {
		return ErrInvalidToken
	}
	if err := s.ledger.RevokeByJTI(jti); err != nil {
		s.audit.Failure(AuditRevokeFailed, "failed to revoke session", &principal.User.ID, jti, err)
		return err
	}
	s.audit.Info(AuditLogout, "session revoked", &principal.User.ID, jti, "", "")
	return nil
}

// ListSessions returns the user's active (unrevoked, unexpired) sessions.
func (s *AuthService) ListSessions(userID uint) ([]models.AccessToken, error) {
	return s.ledger.ListActiveForUser(userID)
}

func (s *AuthService) ChangePassword(userID uint, req *ChangePasswordRequest) error {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return errors.New("user not found")
	}

	if user.AuthType != models.AuthTypeLocal {
		return errors.New("only password accounts can change password here")
	}

	if !utils.CheckPassword(req.OldPassword, user.Password) {
		return ErrInvalidCredentials
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	user.Password = hashed
	return s.db.Save(&user).Error
}

// GetUserByID retrieves a user by ID.
func (s *AuthService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) IsLDAPEnabled() bool {
	return s.ldap.IsEnabled()
}

// CreateAdminIfNotExists seeds the default admin account on first boot.
func (s *AuthService) CreateAdminIfNotExists() error {
	var count int64
	s.db.Model(&models.User{}).Where("role = ?", "admin").Count(&count)

	if count == 0 {
		hashed, err := utils.HashPassword("admin")
		if err != nil {
			return err
		}

		admin := models.User{
			Email:     "admin@localhost",
			Password:  hashed,
			FirstName: "Administrator",
			Role:      "admin",
			AuthType:  models.AuthTypeLocal,
			IsActive:  true,
		}
		return s.db.Create(&admin).Error
	}

	return nil
}

func (s *AuthService) localAuth(email, password string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// a social or directory account has no usable password here
	if user.AuthType != models.AuthTypeLocal {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}
	if !utils.CheckPassword(password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

func (s *AuthService) ldapAuth(username, password string) (*models.User, error) {
	directoryUser, err := s.ldap.Authenticate(username, password)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	email := directoryUser.Email
	if email == "" {
		email = directoryUser.Username
	}

	var user models.User
	err = s.db.Where("email = ? AND auth_type = ?", email, models.AuthTypeLDAP).First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			Email:     email,
			FirstName: directoryUser.FullName,
			Role:      "user",
			AuthType:  models.AuthTypeLDAP,
			IsActive:  true,
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrUserDisabled
	}

	// keep the profile in sync with the directory
	user.FirstName = directoryUser.FullName
	if err := s.db.Save(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

func (s *AuthService) finishLogin(user *models.User, event, clientIP, userAgent string) (*LoginResult, error) {
	pair, err := s.tokens.Issue(user, clientIP, userAgent)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.db.Model(user).Update("last_login", now).Error; err != nil {
		logger.Warn().Err(err).Uint("user_id", user.ID).Msg("failed to record last login")
	}

	s.audit.Info(event, "token pair issued", &user.ID, pair.JTI, clientIP, userAgent)
	return &LoginResult{User: user, Pair: pair}, nil
}
