package registration

import (
	"Onboarding/internal/core/domain"
	"Onboarding/internal/core/ports"
	"Onboarding/internal/core/services/otp"
	"context"
	"fmt"
	"math"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// StepwiseRegistration runs the merchant wizard. The merchant row exists
// from the first step; each later step is gated by MerchantFlow.
type StepwiseRegistration struct {
	deps Deps
	flow domain.StepFlow
	log  zerolog.Logger
}

var _ PendingRegistration = (*StepwiseRegistration)(nil)

func NewStepwiseRegistration(deps Deps, baseLogger *zerolog.Logger) *StepwiseRegistration {
	return &StepwiseRegistration{
		deps: deps,
		flow: domain.MerchantFlow,
		log:  baseLogger.With().Str("component", "stepwise_registration").Logger(),
	}
}

// StepResult reports the wizard position after a step submission.
type StepResult struct {
	Merchant      *domain.Merchant
	Step          domain.Step
	StepCompleted bool
	CurrentStep   domain.Step
	NextStep      domain.Step
	IsCompleted   bool
}

type BasicInfoInput struct {
	MerchantID  *uuid.UUID // set to update an existing pending merchant
	Name        domain.TranslatedText
	PhoneNumber string
	Email       string
}

type BasicInfoResult struct {
	StepResult
	OTP *otp.Issued // nil when the phone was already verified
}

// RegisterBasicInfo creates a pending merchant, or updates one, and sends a
// verification code to its phone.
func (s *StepwiseRegistration) RegisterBasicInfo(ctx context.Context, in BasicInfoInput) (*BasicInfoResult, error) {
	phone, err := s.deps.normalizePhone(in.PhoneNumber)
	if err != nil {
		return nil, err
	}
	email, err := domain.NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if in.Name.IsBlank() {
		return nil, domain.FieldError(domain.KindInvalidInput, "name is required", "name", "required")
	}

	log := s.log.With().Str("phone", domain.MaskPhone(phone)).Logger()

	var out *BasicInfoResult
	err = s.deps.Tx.WithinTx(ctx, func(ctx context.Context, r ports.Repositories) error {
		now := s.deps.now()

		// 1. Load the merchant being updated, if any
		var m *domain.Merchant
		if in.MerchantID != nil {
			var err error
			if m, err = s.lockMerchant(ctx, r, *in.MerchantID); err != nil {
				return err
			}
			if m.IsPhoneVerified && m.PhoneNumber != phone {
				return domain.ErrStepNotAllowed.WithField("phone_number", "cannot change after verification")
			}
		}

		// 2. Uniqueness against other merchants
		var exclude *uuid.UUID
		if m != nil {
			exclude = &m.ID
		}
		taken, err := r.Merchants.ExistsByPhone(ctx, phone, exclude)
		if err != nil {
			return domain.Internal("failed to check phone number", err)
		}
		if taken {
			return domain.ErrDuplicatePhone
		}
		if email != nil {
			taken, err := r.Merchants.ExistsByEmail(ctx, *email, exclude)
			if err != nil {
				return domain.Internal("failed to check email", err)
			}
			if taken {
				return domain.ErrDuplicateEmail
			}
		}

		// 3. Create or update
		if m == nil {
			m = &domain.Merchant{
				ID:                 uuid.New(),
				Name:               in.Name.Clone(),
				PhoneNumber:        phone,
				Email:              email,
				SubscriptionStatus: domain.SubscriptionNone,
				Status:             domain.MerchantPending,
				CreatedAt:          now,
				UpdatedAt:          now,
			}
			if err := r.Merchants.Create(ctx, m); err != nil {
				return domain.Internal("failed to create merchant", err)
			}
			log.Info().Str("merchant_id", m.ID.String()).Msg("Pending merchant created")
		} else {
			if m.PhoneNumber != phone {
				if err := dropLiveCode(ctx, r, m.PhoneNumber, domain.ActorMerchant); err != nil {
					return err
				}
			}
			m.Name = in.Name.Clone()
			m.PhoneNumber = phone
			m.Email = email
		}

		// 4. Record the step
		data := map[string]any{"name": toAnyMap(in.Name), "phone_number": phone}
		if email != nil {
			data["email"] = *email
		}
		res, err := s.recordStep(ctx, r, m, domain.StepBasicInfo, data, true, now)
		if err != nil {
			return err
		}
		out = &BasicInfoResult{StepResult: *res}

		// 5. Send the code
		if !m.IsPhoneVerified {
			issued, err := s.deps.OTP.IssueTx(ctx, r, otp.IssueRequest{
				Phone:   phone,
				Kind:    domain.ActorMerchant,
				Purpose: domain.PurposeRegistration,
			})
			if err != nil {
				return err
			}
			out.OTP = issued
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("Basic info registration failed")
		return nil, err
	}
	return out, nil
}

type VerifyPhoneResult struct {
	StepResult
	Token *domain.AuthToken
}

// VerifyPhone consumes the merchant's code, marks the phone verified and
// signs the merchant in.
func (s *StepwiseRegistration) VerifyPhone(ctx context.Context, phoneNumber, code string) (*VerifyPhoneResult, error) {
	phone, err := s.deps.normalizePhone(phoneNumber)
	if err != nil {
		return nil, err
	}
	log := s.log.With().Str("phone", domain.MaskPhone(phone)).Logger()

	var out *VerifyPhoneResult
	err = s.deps.withinTxKeepingRejections(ctx, func(ctx context.Context, r ports.Repositories) error {
		m, err := r.Merchants.GetByPhone(ctx, phone)
		if err != nil {
			return domain.Internal("failed to load merchant", err)
		}
		if m == nil {
			return domain.ErrPhoneNotRegistered
		}
		if m, err = s.lockMerchant(ctx, r, m.ID); err != nil {
			return err
		}

		if _, err := s.deps.OTP.VerifyTx(ctx, r, otp.VerifyRequest{
			Phone:   phone,
			Kind:    domain.ActorMerchant,
			Purpose: domain.PurposeRegistration,
			Code:    code,
		}); err != nil {
			return err
		}

		now := s.deps.now()
		m.IsPhoneVerified = true
		m.PhoneVerifiedAt = &now
		m.LastLoginAt = &now
		data := map[string]any{"phone_number": phone, "verified_at": now.Format(time.RFC3339)}
		res, err := s.recordStep(ctx, r, m, domain.StepPhoneVerification, data, true, now)
		if err != nil {
			return err
		}

		token, err := s.deps.issueToken(ctx, domain.ActorMerchant, m.ID)
		if err != nil {
			return err
		}
		out = &VerifyPhoneResult{StepResult: *res, Token: token}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("Phone verification failed")
		return nil, err
	}
	log.Info().Str("merchant_id", out.Merchant.ID.String()).Msg("Merchant phone verified")
	return out, nil
}

// ResendPhoneOTP sends a new code to a merchant whose phone is not verified yet.
func (s *StepwiseRegistration) ResendPhoneOTP(ctx context.Context, merchantID uuid.UUID) (*otp.Issued, error) {
	var out *otp.Issued
	err := s.deps.Tx.WithinTx(ctx, func(ctx context.Context, r ports.Repositories) error {
		m, err := s.lockMerchant(ctx, r, merchantID)
		if err != nil {
			return err
		}
		if m.IsPhoneVerified {
			return domain.ErrStepNotAllowed.WithField("phone_number", "already verified")
		}
		if _, err := s.deps.OTP.CheckResendTx(ctx, r, m.PhoneNumber, domain.ActorMerchant); err != nil {
			return err
		}
		out, err = s.deps.OTP.IssueTx(ctx, r, otp.IssueRequest{
			Phone:   m.PhoneNumber,
			Kind:    domain.ActorMerchant,
			Purpose: domain.PurposeRegistration,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type SubscriptionResult struct {
	StepResult
	Plan            *domain.SubscriptionPlan
	RequiresPayment bool
}

// ChooseSubscription attaches a plan. Free plans complete the step at once;
// paid plans wait for ProcessPayment.
func (s *StepwiseRegistration) ChooseSubscription(ctx context.Context, merchantID, planID uuid.UUID) (*SubscriptionResult, error) {
	var plan *domain.SubscriptionPlan
	res, err := s.submitStep(ctx, merchantID, domain.StepSubscription, func(ctx context.Context, r ports.Repositories, m *domain.Merchant, now time.Time) (map[string]any, bool, error) {
		var err error
		if plan, err = r.Plans.GetByID(ctx, planID); err != nil {
			return nil, false, domain.Internal("failed to load plan", err)
		}
		if plan == nil {
			return nil, false, domain.ErrPlanNotFound
		}
		if !plan.IsActive {
			return nil, false, domain.ErrPlanInactive
		}
		if m.IsSubscriptionPaid {
			return nil, false, domain.ErrAlreadyPaid
		}

		start := now
		end := plan.Period.EndDate(start)
		m.SubscriptionPlanID = &plan.ID
		m.SubscriptionStartDate = &start
		m.SubscriptionEndDate = &end
		m.SubscriptionAmount = plan.Price

		data := map[string]any{
			"plan_id":  plan.ID.String(),
			"price":    plan.Price,
			"currency": plan.Currency,
			"period":   string(plan.Period),
		}
		if plan.IsFree() {
			m.SubscriptionStatus = domain.SubscriptionActive
			m.IsSubscriptionPaid = true
			return data, true, nil
		}
		m.SubscriptionStatus = domain.SubscriptionPending
		return data, false, nil
	})
	if err != nil {
		return nil, err
	}
	return &SubscriptionResult{StepResult: *res, Plan: plan, RequiresPayment: !res.StepCompleted}, nil
}

type PaymentInput struct {
	Method    string // e.g. "card", "bank_transfer"
	Reference string // gateway token or transfer reference
}

type PaymentResult struct {
	StepResult
	TransactionID string
}

// ProcessPayment charges the chosen plan and completes the subscription step.
func (s *StepwiseRegistration) ProcessPayment(ctx context.Context, merchantID uuid.UUID, in PaymentInput) (*PaymentResult, error) {
	if strings.TrimSpace(in.Method) == "" {
		return nil, domain.FieldError(domain.KindInvalidInput, "payment method is required", "payment_method", "required")
	}

	var txID string
	res, err := s.submitStep(ctx, merchantID, domain.StepSubscription, func(ctx context.Context, r ports.Repositories, m *domain.Merchant, now time.Time) (map[string]any, bool, error) {
		if m.IsSubscriptionPaid {
			return nil, false, domain.ErrAlreadyPaid
		}
		if m.SubscriptionPlanID == nil {
			return nil, false, domain.ErrSubscriptionNotChosen
		}
		plan, err := r.Plans.GetByID(ctx, *m.SubscriptionPlanID)
		if err != nil {
			return nil, false, domain.Internal("failed to load plan", err)
		}
		if plan == nil {
			return nil, false, domain.ErrPlanNotFound
		}
		if !plan.IsActive {
			return nil, false, domain.ErrPlanInactive
		}

		charge, err := s.deps.Payments.Charge(ctx, ports.ChargeRequest{
			MerchantID: m.ID,
			PlanID:     plan.ID,
			Amount:     m.SubscriptionAmount,
			Currency:   plan.Currency,
			Method:     in.Method,
			Reference:  in.Reference,
		})
		if err != nil {
			return nil, false, domain.Internal("payment failed", err)
		}
		if !charge.Approved {
			return nil, false, domain.ErrPaymentDeclined
		}

		txID = charge.TransactionID
		m.IsSubscriptionPaid = true
		m.SubscriptionStatus = domain.SubscriptionActive
		return map[string]any{
			"plan_id":        plan.ID.String(),
			"amount":         m.SubscriptionAmount,
			"currency":       plan.Currency,
			"payment_method": in.Method,
			"transaction_id": charge.TransactionID,
			"paid_at":        now.Format(time.RFC3339),
		}, true, nil
	})
	if err != nil {
		return nil, err
	}
	return &PaymentResult{StepResult: *res, TransactionID: txID}, nil
}

type BusinessInfoInput struct {
	BusinessName       domain.TranslatedText
	BusinessType       string
	TaxNumber          string
	CommercialRegister string
	Documents          []ports.Upload // replaces stored documents when non-empty
}

// UpdateBusinessInfo records the business identity and its documents.
func (s *StepwiseRegistration) UpdateBusinessInfo(ctx context.Context, merchantID uuid.UUID, in BusinessInfoInput) (*StepResult, error) {
	fields := map[string]string{}
	if in.BusinessName.IsBlank() {
		fields["business_name"] = "required"
	}
	if strings.TrimSpace(in.BusinessType) == "" {
		fields["business_type"] = "required"
	}
	if len(fields) > 0 {
		return nil, &domain.Error{Kind: domain.KindInvalidInput, Message: "invalid business info", Fields: fields}
	}

	stored, err := s.storeUploads(ctx, merchantID, "documents", in.Documents...)
	if err != nil {
		return nil, err
	}

	var replaced []string
	res, err := s.submitStep(ctx, merchantID, domain.StepBusinessInfo, func(ctx context.Context, r ports.Repositories, m *domain.Merchant, now time.Time) (map[string]any, bool, error) {
		m.BusinessName = in.BusinessName.Clone()
		m.BusinessType = strings.TrimSpace(in.BusinessType)
		m.TaxNumber = strings.TrimSpace(in.TaxNumber)
		m.CommercialRegister = strings.TrimSpace(in.CommercialRegister)
		if len(stored) > 0 {
			replaced = m.BusinessDocuments
			m.BusinessDocuments = stored
		}
		return map[string]any{
			"business_name":       toAnyMap(m.BusinessName),
			"business_type":       m.BusinessType,
			"tax_number":          m.TaxNumber,
			"commercial_register": m.CommercialRegister,
			"documents":           m.BusinessDocuments,
		}, true, nil
	})
	if err != nil {
		s.discardFiles(ctx, stored)
		return nil, err
	}
	s.discardFiles(ctx, replaced)
	return res, nil
}

type BusinessProfileInput struct {
	Description domain.TranslatedText
	Website     string
	Logo        *ports.Upload
	Cover       *ports.Upload
}

// UpdateBusinessProfile records the public profile and its images.
func (s *StepwiseRegistration) UpdateBusinessProfile(ctx context.Context, merchantID uuid.UUID, in BusinessProfileInput) (*StepResult, error) {
	if in.Description.IsBlank() {
		return nil, domain.FieldError(domain.KindInvalidInput, "description is required", "description", "required")
	}

	var logoPath, coverPath string
	var stored []string
	if in.Logo != nil {
		paths, err := s.storeUploads(ctx, merchantID, "images", *in.Logo)
		if err != nil {
			return nil, err
		}
		logoPath = paths[0]
		stored = append(stored, logoPath)
	}
	if in.Cover != nil {
		paths, err := s.storeUploads(ctx, merchantID, "images", *in.Cover)
		if err != nil {
			s.discardFiles(ctx, stored)
			return nil, err
		}
		coverPath = paths[0]
		stored = append(stored, coverPath)
	}

	var replaced []string
	res, err := s.submitStep(ctx, merchantID, domain.StepBusinessProfile, func(ctx context.Context, r ports.Repositories, m *domain.Merchant, now time.Time) (map[string]any, bool, error) {
		m.Description = in.Description.Clone()
		m.Website = strings.TrimSpace(in.Website)
		if logoPath != "" {
			if m.LogoPath != "" {
				replaced = append(replaced, m.LogoPath)
			}
			m.LogoPath = logoPath
		}
		if coverPath != "" {
			if m.CoverPath != "" {
				replaced = append(replaced, m.CoverPath)
			}
			m.CoverPath = coverPath
		}
		return map[string]any{
			"description": toAnyMap(m.Description),
			"website":     m.Website,
			"logo":        m.LogoPath,
			"cover":       m.CoverPath,
		}, true, nil
	})
	if err != nil {
		s.discardFiles(ctx, stored)
		return nil, err
	}
	s.discardFiles(ctx, replaced)
	return res, nil
}

type LocationInput struct {
	Latitude  float64
	Longitude float64
	City      string
	Address   domain.TranslatedText
}

// UpdateLocation records the business location. It is the last wizard step,
// so a successful call normally activates the merchant.
func (s *StepwiseRegistration) UpdateLocation(ctx context.Context, merchantID uuid.UUID, in LocationInput) (*StepResult, error) {
	fields := map[string]string{}
	if math.IsNaN(in.Latitude) || in.Latitude < -90 || in.Latitude > 90 {
		fields["latitude"] = "must be between -90 and 90"
	}
	if math.IsNaN(in.Longitude) || in.Longitude < -180 || in.Longitude > 180 {
		fields["longitude"] = "must be between -180 and 180"
	}
	if strings.TrimSpace(in.City) == "" {
		fields["city"] = "required"
	}
	if len(fields) > 0 {
		return nil, &domain.Error{Kind: domain.KindInvalidInput, Message: "invalid location", Fields: fields}
	}

	return s.submitStep(ctx, merchantID, domain.StepLocation, func(ctx context.Context, r ports.Repositories, m *domain.Merchant, now time.Time) (map[string]any, bool, error) {
		lat, lng := in.Latitude, in.Longitude
		m.Latitude = &lat
		m.Longitude = &lng
		m.City = strings.TrimSpace(in.City)
		if !in.Address.IsBlank() {
			m.BusinessAddress = in.Address.Clone()
		}
		return map[string]any{
			"latitude":  lat,
			"longitude": lng,
			"city":      m.City,
			"address":   toAnyMap(m.BusinessAddress),
		}, true, nil
	})
}

// StepState is the completion state of one wizard step.
type StepState struct {
	Step        domain.Step
	Completed   bool
	CompletedAt *time.Time
}

type RegistrationStatus struct {
	MerchantID         uuid.UUID
	Status             domain.MerchantStatus
	Steps              []StepState
	CurrentStep        domain.Step
	NextStep           domain.Step // domain.StepCompleted when nothing is left
	CompletedSteps     int
	TotalSteps         int
	ProgressPercentage int
	IsCompleted        bool
}

// GetRegistrationStatus reports wizard progress without changing anything.
func (s *StepwiseRegistration) GetRegistrationStatus(ctx context.Context, merchantID uuid.UUID) (*RegistrationStatus, error) {
	r := s.deps.Tx.Repositories()

	m, err := r.Merchants.GetByID(ctx, merchantID)
	if err != nil {
		return nil, domain.Internal("failed to load merchant", err)
	}
	if m == nil {
		return nil, domain.ErrAccountNotFound
	}
	if err := checkOwnership(ctx, domain.ActorMerchant, m.ID); err != nil {
		return nil, err
	}

	records, err := r.Merchants.ListSteps(ctx, m.ID)
	if err != nil {
		return nil, domain.Internal("failed to load registration steps", err)
	}
	byStep := make(map[domain.Step]*domain.MerchantRegistrationStep, len(records))
	for _, rec := range records {
		byStep[rec.Step] = rec
	}

	done := domain.CompletedSet(records)
	status := &RegistrationStatus{
		MerchantID:  m.ID,
		Status:      m.Status,
		CurrentStep: m.RegistrationStep,
		NextStep:    s.flow.Next(done, ""),
		TotalSteps:  s.flow.Len(),
	}
	status.CompletedSteps, status.ProgressPercentage = s.flow.Progress(done)
	status.IsCompleted = status.NextStep == domain.StepCompleted
	for _, step := range s.flow.Steps() {
		st := StepState{Step: step, Completed: done[step]}
		if rec, ok := byStep[step]; ok && rec.IsCompleted {
			st.CompletedAt = rec.CompletedAt
		}
		status.Steps = append(status.Steps, st)
	}
	return status, nil
}

// stepMutation applies one step's changes to a locked merchant and returns
// the step snapshot and whether the step is now complete.
type stepMutation func(ctx context.Context, r ports.Repositories, m *domain.Merchant, now time.Time) (map[string]any, bool, error)

// submitStep runs a gated step submission in one transaction.
func (s *StepwiseRegistration) submitStep(ctx context.Context, merchantID uuid.UUID, step domain.Step, apply stepMutation) (*StepResult, error) {
	log := s.log.With().Str("merchant_id", merchantID.String()).Str("step", string(step)).Logger()

	var (
		out      *StepResult
		terminal bool
	)
	err := s.deps.Tx.WithinTx(ctx, func(ctx context.Context, r ports.Repositories) error {
		m, err := s.lockMerchant(ctx, r, merchantID)
		if err != nil {
			return err
		}
		if err := s.flow.CheckSubmit(step, m.RegistrationStep, m.IsPhoneVerified); err != nil {
			return err
		}

		now := s.deps.now()
		alreadyDone := m.CompletedAt != nil
		data, completed, err := apply(ctx, r, m, now)
		if err != nil {
			return err
		}
		if out, err = s.recordStep(ctx, r, m, step, data, completed, now); err != nil {
			return err
		}
		terminal = !alreadyDone && out.IsCompleted
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("Registration step rejected")
		return nil, err
	}

	log.Info().Bool("step_completed", out.StepCompleted).Str("next_step", string(out.NextStep)).Msg("Registration step saved")
	if terminal {
		log.Info().Msg("Merchant registration completed")
		ev := (&AccountResult{Kind: domain.ActorMerchant, AccountID: out.Merchant.ID, Merchant: out.Merchant}).event(s.flow.Name(), *out.Merchant.CompletedAt)
		s.deps.publish(ctx, log, ports.TopicMerchantRegistered, ev)
	}
	return out, nil
}

// recordStep upserts the step record, advances the current step and applies
// the terminal transition once every step is done. The merchant is saved.
func (s *StepwiseRegistration) recordStep(ctx context.Context, r ports.Repositories, m *domain.Merchant, step domain.Step, data map[string]any, completed bool, now time.Time) (*StepResult, error) {
	rec := &domain.MerchantRegistrationStep{
		ID:          uuid.New(),
		MerchantID:  m.ID,
		Step:        step,
		IsCompleted: completed,
		Data:        data,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if completed {
		rec.CompletedAt = &now
	}
	if err := r.Merchants.UpsertStep(ctx, rec); err != nil {
		return nil, domain.Internal("failed to record registration step", err)
	}

	records, err := r.Merchants.ListSteps(ctx, m.ID)
	if err != nil {
		return nil, domain.Internal("failed to load registration steps", err)
	}
	done := domain.CompletedSet(records)
	next := s.flow.Next(done, "")

	m.RegistrationStep = s.flow.Advance(m.RegistrationStep, done)
	if next == domain.StepCompleted && m.CompletedAt == nil {
		m.MarkRegistered(now)
	}
	m.UpdatedAt = now
	if err := r.Merchants.Update(ctx, m); err != nil {
		return nil, domain.Internal("failed to update merchant", err)
	}

	return &StepResult{
		Merchant:      m,
		Step:          step,
		StepCompleted: completed,
		CurrentStep:   m.RegistrationStep,
		NextStep:      next,
		IsCompleted:   m.CompletedAt != nil,
	}, nil
}

// dropLiveCode deletes the live code for a number the account no longer uses.
func dropLiveCode(ctx context.Context, r ports.Repositories, phone string, kind domain.ActorKind) error {
	row, err := r.Codes.GetForUpdate(ctx, phone, kind)
	if err != nil {
		return domain.Internal("failed to load verification code", err)
	}
	if row == nil {
		return nil
	}
	if err := r.Codes.Delete(ctx, row.ID); err != nil {
		return domain.Internal("failed to delete verification code", err)
	}
	return nil
}

func (s *StepwiseRegistration) lockMerchant(ctx context.Context, r ports.Repositories, id uuid.UUID) (*domain.Merchant, error) {
	m, err := r.Merchants.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, domain.Internal("failed to load merchant", err)
	}
	if m == nil {
		return nil, domain.ErrAccountNotFound
	}
	if err := checkOwnership(ctx, domain.ActorMerchant, m.ID); err != nil {
		return nil, err
	}
	return m, nil
}

// storeUploads saves files under merchants/<id>/<kind>. On failure the
// files stored so far are removed again.
func (s *StepwiseRegistration) storeUploads(ctx context.Context, merchantID uuid.UUID, kind string, uploads ...ports.Upload) ([]string, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	dir := path.Join("merchants", merchantID.String(), kind)
	paths := make([]string, 0, len(uploads))
	for _, u := range uploads {
		p, err := s.deps.Storage.Store(ctx, u, dir)
		if err != nil {
			s.discardFiles(ctx, paths)
			s.log.Error().Err(err).Str("merchant_id", merchantID.String()).Msg("Failed to store upload")
			return nil, domain.Internal(fmt.Sprintf("failed to store %s", kind), err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func (s *StepwiseRegistration) discardFiles(ctx context.Context, paths []string) {
	for _, p := range paths {
		if err := s.deps.Storage.Delete(ctx, p); err != nil {
			s.log.Warn().Err(err).Str("path", p).Msg("Failed to delete stored file")
		}
	}
}

func toAnyMap(t domain.TranslatedText) map[string]any {
	out := make(map[string]any, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
