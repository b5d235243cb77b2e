package handler

import (
	"encoding/json"

	"github.com/xcellar/xcellar/internal/auth/token"
	"github.com/xcellar/xcellar/internal/repository"
	"github.com/xcellar/xcellar/internal/service"
)

// View structs shape repository rows for the wire. Money crosses the API
// boundary as naira floats; everything internal stays kobo.

type userView struct {
	ID            int64  `json:"id"`
	Email         string `json:"email"`
	PhoneNumber   string `json:"phone_number"`
	UserType      string `json:"user_type"`
	IsActive      bool   `json:"is_active"`
	PhoneVerified bool   `json:"phone_verified"`
	LastLoginAt   *int64 `json:"last_login_at,omitempty"`
	CreatedAt     int64  `json:"created_at"`
}

func newUserView(u *repository.User) *userView {
	if u == nil {
		return nil
	}
	return &userView{
		ID:            u.ID,
		Email:         u.Email,
		PhoneNumber:   u.PhoneNumber,
		UserType:      u.UserType,
		IsActive:      u.IsActive,
		PhoneVerified: u.PhoneVerified,
		LastLoginAt:   u.LastLoginAt,
		CreatedAt:     u.CreatedAt,
	}
}

type tokenView struct {
	Access    string `json:"access"`
	Refresh   string `json:"refresh"`
	TokenType string `json:"token_type"`
	ExpiresAt int64  `json:"expires_at"`
}

func newTokenView(pair *token.Pair) *tokenView {
	if pair == nil {
		return nil
	}
	view := &tokenView{Access: pair.Access, Refresh: pair.Refresh, TokenType: "Bearer"}
	if pair.AccessClaims != nil && pair.AccessClaims.ExpiresAt != nil {
		view.ExpiresAt = pair.AccessClaims.ExpiresAt.Unix()
	}
	return view
}

type userProfileView struct {
	FullName        string  `json:"full_name"`
	Address         *string `json:"address"`
	ProfileImageURL *string `json:"profile_image_url"`
}

type courierProfileView struct {
	FullName          string  `json:"full_name"`
	VehicleType       *string `json:"vehicle_type"`
	LicenseNumber     *string `json:"license_number"`
	IsAvailable       bool    `json:"is_available"`
	Address           *string `json:"address"`
	ProfileImageURL   *string `json:"profile_image_url"`
	BankAccountNumber *string `json:"bank_account_number"`
	BankCode          *string `json:"bank_code"`
	BankName          *string `json:"bank_name"`
	AccountName       *string `json:"account_name"`
	ApprovalStatus    string  `json:"approval_status"`
	ApprovedAt        *int64  `json:"approved_at"`
}

func newProfileView(p *service.ProfileView) map[string]any {
	if p == nil {
		return nil
	}
	out := map[string]any{
		"user":    newUserView(p.User),
		"balance": naira(p.User.BalanceKobo),
	}
	if p.UserProfile != nil {
		out["profile"] = &userProfileView{
			FullName:        p.UserProfile.FullName,
			Address:         p.UserProfile.Address,
			ProfileImageURL: p.UserProfile.ProfileImageURL,
		}
	}
	if p.CourierProfile != nil {
		cp := p.CourierProfile
		out["courier_profile"] = &courierProfileView{
			FullName:          cp.FullName,
			VehicleType:       cp.VehicleType,
			LicenseNumber:     cp.LicenseNumber,
			IsAvailable:       cp.IsAvailable,
			Address:           cp.Address,
			ProfileImageURL:   cp.ProfileImageURL,
			BankAccountNumber: cp.BankAccountNumber,
			BankCode:          cp.BankCode,
			BankName:          cp.BankName,
			AccountName:       cp.AccountName,
			ApprovalStatus:    cp.ApprovalStatus,
			ApprovedAt:        cp.ApprovedAt,
		}
	}
	return out
}

type categoryView struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description string  `json:"description"`
	IconURL     *string `json:"icon_url"`
	IsFeatured  bool    `json:"is_featured"`
}

func newCategoryViews(rows []*repository.Category) []*categoryView {
	out := make([]*categoryView, 0, len(rows))
	for _, c := range rows {
		out = append(out, &categoryView{
			ID:          c.ID,
			Name:        c.Name,
			Slug:        c.Slug,
			Description: c.Description,
			IconURL:     c.IconURL,
			IsFeatured:  c.IsFeatured,
		})
	}
	return out
}

type shopView struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Slug          string  `json:"slug"`
	Description   string  `json:"description"`
	LogoURL       *string `json:"logo_url"`
	CoverImageURL *string `json:"cover_image_url"`
	Address       string  `json:"address"`
	PhoneNumber   string  `json:"phone_number"`
	Rating        float64 `json:"rating"`
	TotalSales    int64   `json:"total_sales"`
	IsVerified    bool    `json:"is_verified"`
}

func newShopView(s *repository.Shop) *shopView {
	return &shopView{
		ID:            s.ID,
		Name:          s.Name,
		Slug:          s.Slug,
		Description:   s.Description,
		LogoURL:       s.LogoURL,
		CoverImageURL: s.CoverImageURL,
		Address:       s.Address,
		PhoneNumber:   s.PhoneNumber,
		Rating:        s.Rating,
		TotalSales:    s.TotalSales,
		IsVerified:    s.IsVerified,
	}
}

func newShopViews(rows []*repository.Shop) []*shopView {
	out := make([]*shopView, 0, len(rows))
	for _, s := range rows {
		out = append(out, newShopView(s))
	}
	return out
}

type productView struct {
	ID               int64    `json:"id"`
	ShopID           int64    `json:"shop_id"`
	CategoryID       int64    `json:"category_id"`
	Name             string   `json:"name"`
	Slug             string   `json:"slug"`
	Description      string   `json:"description"`
	ShortDescription string   `json:"short_description"`
	Price            float64  `json:"price"`
	CompareAtPrice   *float64 `json:"compare_at_price"`
	StockQuantity    int64    `json:"stock_quantity"`
	PrimaryImageURL  *string  `json:"primary_image_url"`
	Images           []string `json:"images"`
	WeightKG         float64  `json:"weight_kg"`
	IsAvailable      bool     `json:"is_available"`
	IsFeatured       bool     `json:"is_featured"`
	Rating           float64  `json:"rating"`
}

func newProductView(p *repository.Product) *productView {
	view := &productView{
		ID:               p.ID,
		ShopID:           p.ShopID,
		CategoryID:       p.CategoryID,
		Name:             p.Name,
		Slug:             p.Slug,
		Description:      p.Description,
		ShortDescription: p.ShortDescription,
		Price:            naira(p.PriceKobo),
		StockQuantity:    p.StockQuantity,
		PrimaryImageURL:  p.PrimaryImageURL,
		Images:           p.Images,
		WeightKG:         p.WeightKG,
		IsAvailable:      p.IsAvailable,
		IsFeatured:       p.IsFeatured,
		Rating:           p.Rating,
	}
	if p.CompareAtPriceKobo != nil {
		v := naira(*p.CompareAtPriceKobo)
		view.CompareAtPrice = &v
	}
	return view
}

func newProductViews(rows []*repository.Product) []*productView {
	out := make([]*productView, 0, len(rows))
	for _, p := range rows {
		out = append(out, newProductView(p))
	}
	return out
}

type cartItemView struct {
	ItemID    int64   `json:"item_id"`
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int64   `json:"quantity"`
	Subtotal  float64 `json:"subtotal"`
}

type cartView struct {
	CartID int64          `json:"cart_id"`
	Items  []cartItemView `json:"items"`
	Total  float64        `json:"total"`
}

func newCartView(c *service.CartView) *cartView {
	if c == nil {
		return nil
	}
	items := make([]cartItemView, 0, len(c.Items))
	for _, line := range c.Items {
		items = append(items, cartItemView{
			ItemID:    line.ItemID,
			ProductID: line.ProductID,
			Name:      line.Name,
			UnitPrice: naira(line.UnitPriceKobo),
			Quantity:  line.Quantity,
			Subtotal:  naira(line.SubtotalKobo),
		})
	}
	return &cartView{CartID: c.CartID, Items: items, Total: naira(c.TotalKobo)}
}

type orderView struct {
	ID                        int64           `json:"id"`
	OrderNumber               string          `json:"order_number"`
	TrackingNumber            string          `json:"tracking_number"`
	SenderID                  int64           `json:"sender_id"`
	AssignedCourierID         *int64          `json:"assigned_courier_id"`
	PickupAddress             string          `json:"pickup_address"`
	PickupLatitude            *float64        `json:"pickup_latitude"`
	PickupLongitude           *float64        `json:"pickup_longitude"`
	DropoffAddress            string          `json:"dropoff_address"`
	DropoffLatitude           *float64        `json:"dropoff_latitude"`
	DropoffLongitude          *float64        `json:"dropoff_longitude"`
	RecipientName             string          `json:"recipient_name"`
	RecipientEmail            *string         `json:"recipient_email"`
	RecipientPhone            string          `json:"recipient_phone"`
	RecipientAlternatePhone   *string         `json:"recipient_alternate_phone"`
	DeliveryInstructions      string          `json:"delivery_instructions"`
	RequireRecipientSignature bool            `json:"require_recipient_signature"`
	ParcelType                string          `json:"parcel_type"`
	ParcelDescription         string          `json:"parcel_description"`
	ParcelCondition           string          `json:"parcel_condition"`
	ParcelQuantity            int64           `json:"parcel_quantity"`
	ParcelWeightKG            float64         `json:"parcel_weight_kg"`
	ParcelWorth               float64         `json:"parcel_worth"`
	ParcelImages              []string        `json:"parcel_images"`
	DeliveryFee               float64         `json:"delivery_fee"`
	ServiceCharge             float64         `json:"service_charge"`
	InsuranceFee              float64         `json:"insurance_fee"`
	TotalAmount               float64         `json:"total_amount"`
	PaymentStatus             string          `json:"payment_status"`
	Status                    string          `json:"status"`
	CurrentLocation           string          `json:"current_location"`
	EstimatedDeliveryAt       *int64          `json:"estimated_delivery_at"`
	OfferExpiresAt            *int64          `json:"offer_expires_at"`
	PickedUpAt                *int64          `json:"picked_up_at"`
	DeliveredAt               *int64          `json:"delivered_at"`
	CancelledAt               *int64          `json:"cancelled_at"`
	Metadata                  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt                 int64           `json:"created_at"`
	UpdatedAt                 int64           `json:"updated_at"`
}

func newOrderView(o *repository.Order) *orderView {
	if o == nil {
		return nil
	}
	return &orderView{
		ID:                        o.ID,
		OrderNumber:               o.OrderNumber,
		TrackingNumber:            o.TrackingNumber,
		SenderID:                  o.SenderID,
		AssignedCourierID:         o.AssignedCourierID,
		PickupAddress:             o.PickupAddress,
		PickupLatitude:            o.PickupLatitude,
		PickupLongitude:           o.PickupLongitude,
		DropoffAddress:            o.DropoffAddress,
		DropoffLatitude:           o.DropoffLatitude,
		DropoffLongitude:          o.DropoffLongitude,
		RecipientName:             o.RecipientName,
		RecipientEmail:            o.RecipientEmail,
		RecipientPhone:            o.RecipientPhone,
		RecipientAlternatePhone:   o.RecipientAlternatePhone,
		DeliveryInstructions:      o.DeliveryInstructions,
		RequireRecipientSignature: o.RequireRecipientSignature,
		ParcelType:                o.ParcelType,
		ParcelDescription:         o.ParcelDescription,
		ParcelCondition:           o.ParcelCondition,
		ParcelQuantity:            o.ParcelQuantity,
		ParcelWeightKG:            o.ParcelWeightKG,
		ParcelWorth:               naira(o.ParcelWorthKobo),
		ParcelImages:              o.ParcelImages,
		DeliveryFee:               naira(o.DeliveryFeeKobo),
		ServiceCharge:             naira(o.ServiceChargeKobo),
		InsuranceFee:              naira(o.InsuranceFeeKobo),
		TotalAmount:               naira(o.TotalAmountKobo),
		PaymentStatus:             o.PaymentStatus,
		Status:                    o.Status,
		CurrentLocation:           o.CurrentLocation,
		EstimatedDeliveryAt:       o.EstimatedDeliveryAt,
		OfferExpiresAt:            o.OfferExpiresAt,
		PickedUpAt:                o.PickedUpAt,
		DeliveredAt:               o.DeliveredAt,
		CancelledAt:               o.CancelledAt,
		Metadata:                  o.Metadata,
		CreatedAt:                 o.CreatedAt,
		UpdatedAt:                 o.UpdatedAt,
	}
}

func newOrderViews(rows []*repository.Order) []*orderView {
	out := make([]*orderView, 0, len(rows))
	for _, o := range rows {
		out = append(out, newOrderView(o))
	}
	return out
}

type trackingView struct {
	ID        int64    `json:"id"`
	Status    string   `json:"status"`
	Location  string   `json:"location"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Notes     string   `json:"notes"`
	CreatedAt int64    `json:"created_at"`
}

func newTrackingViews(rows []*repository.TrackingEntry) []*trackingView {
	out := make([]*trackingView, 0, len(rows))
	for _, t := range rows {
		out = append(out, &trackingView{
			ID:        t.ID,
			Status:    t.Status,
			Location:  t.Location,
			Latitude:  t.Latitude,
			Longitude: t.Longitude,
			Notes:     t.Notes,
			CreatedAt: t.CreatedAt,
		})
	}
	return out
}

type vehicleView struct {
	ID                     int64   `json:"id"`
	VehicleType            string  `json:"vehicle_type"`
	OwnershipCondition     string  `json:"ownership_condition"`
	Manufacturer           string  `json:"manufacturer"`
	Model                  string  `json:"model"`
	YearOfManufacture      int64   `json:"year_of_manufacture"`
	LicensePlate           string  `json:"license_plate"`
	RegistrationProofURL   *string `json:"registration_proof_url"`
	InsuranceProofURL      *string `json:"insurance_proof_url"`
	RoadWorthinessProofURL *string `json:"road_worthiness_proof_url"`
	IsActive               bool    `json:"is_active"`
	CreatedAt              int64   `json:"created_at"`
}

func newVehicleView(v *repository.Vehicle) *vehicleView {
	if v == nil {
		return nil
	}
	return &vehicleView{
		ID:                     v.ID,
		VehicleType:            v.VehicleType,
		OwnershipCondition:     v.OwnershipCondition,
		Manufacturer:           v.Manufacturer,
		Model:                  v.Model,
		YearOfManufacture:      v.YearOfManufacture,
		LicensePlate:           v.LicensePlate,
		RegistrationProofURL:   v.RegistrationProofURL,
		InsuranceProofURL:      v.InsuranceProofURL,
		RoadWorthinessProofURL: v.RoadWorthinessProofURL,
		IsActive:               v.IsActive,
		CreatedAt:              v.CreatedAt,
	}
}

func newVehicleViews(rows []*repository.Vehicle) []*vehicleView {
	out := make([]*vehicleView, 0, len(rows))
	for _, v := range rows {
		out = append(out, newVehicleView(v))
	}
	return out
}

type licenseView struct {
	ID                     int64   `json:"id"`
	LicenseNumber          string  `json:"license_number"`
	IssueDate              *int64  `json:"issue_date"`
	ExpiryDate             *int64  `json:"expiry_date"`
	IssuingAuthority       string  `json:"issuing_authority"`
	FrontPageURL           *string `json:"front_page_url"`
	BackPageURL            *string `json:"back_page_url"`
	VehicleInsuranceURL    *string `json:"vehicle_insurance_url"`
	VehicleRegistrationURL *string `json:"vehicle_registration_url"`
}

func newLicenseView(l *repository.DriverLicense) *licenseView {
	if l == nil {
		return nil
	}
	return &licenseView{
		ID:                     l.ID,
		LicenseNumber:          l.LicenseNumber,
		IssueDate:              l.IssueDate,
		ExpiryDate:             l.ExpiryDate,
		IssuingAuthority:       l.IssuingAuthority,
		FrontPageURL:           l.FrontPageURL,
		BackPageURL:            l.BackPageURL,
		VehicleInsuranceURL:    l.VehicleInsuranceURL,
		VehicleRegistrationURL: l.VehicleRegistrationURL,
	}
}

type transactionView struct {
	ID                int64           `json:"id"`
	Type              string          `json:"type"`
	Status            string          `json:"status"`
	PaymentMethod     string          `json:"payment_method"`
	Amount            float64         `json:"amount"`
	Fee               float64         `json:"fee"`
	NetAmount         float64         `json:"net_amount"`
	Reference         string          `json:"reference"`
	ProviderReference *string         `json:"provider_reference"`
	Description       *string         `json:"description"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
	CompletedAt       *int64          `json:"completed_at"`
	CreatedAt         int64           `json:"created_at"`
}

func newTransactionView(t *repository.Transaction) *transactionView {
	if t == nil {
		return nil
	}
	return &transactionView{
		ID:                t.ID,
		Type:              t.Type,
		Status:            t.Status,
		PaymentMethod:     t.PaymentMethod,
		Amount:            naira(t.AmountKobo),
		Fee:               naira(t.FeeKobo),
		NetAmount:         naira(t.NetAmountKobo),
		Reference:         t.Reference,
		ProviderReference: t.ProviderReference,
		Description:       t.Description,
		Metadata:          t.Metadata,
		CompletedAt:       t.CompletedAt,
		CreatedAt:         t.CreatedAt,
	}
}

func newTransactionViews(rows []*repository.Transaction) []*transactionView {
	out := make([]*transactionView, 0, len(rows))
	for _, t := range rows {
		out = append(out, newTransactionView(t))
	}
	return out
}

type dvaView struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	BankName      string `json:"bank_name"`
	BankSlug      string `json:"bank_slug"`
	Currency      string `json:"currency"`
	CreatedAt     int64  `json:"created_at"`
}

func newDVAView(d *repository.DedicatedVirtualAccount) *dvaView {
	if d == nil {
		return nil
	}
	return &dvaView{
		AccountNumber: d.AccountNumber,
		AccountName:   d.AccountName,
		BankName:      d.BankName,
		BankSlug:      d.BankSlug,
		Currency:      d.Currency,
		CreatedAt:     d.CreatedAt,
	}
}

type recipientView struct {
	ID            int64   `json:"id"`
	RecipientCode string  `json:"recipient_code"`
	Name          string  `json:"name"`
	AccountNumber string  `json:"account_number"`
	BankCode      *string `json:"bank_code"`
	BankName      *string `json:"bank_name"`
	Currency      string  `json:"currency"`
	CreatedAt     int64   `json:"created_at"`
}

func newRecipientView(r *repository.TransferRecipient) *recipientView {
	if r == nil {
		return nil
	}
	return &recipientView{
		ID:            r.ID,
		RecipientCode: r.RecipientCode,
		Name:          r.Name,
		AccountNumber: r.AccountNumber,
		BankCode:      r.BankCode,
		BankName:      r.BankName,
		Currency:      r.Currency,
		CreatedAt:     r.CreatedAt,
	}
}

func newRecipientViews(rows []*repository.TransferRecipient) []*recipientView {
	out := make([]*recipientView, 0, len(rows))
	for _, r := range rows {
		out = append(out, newRecipientView(r))
	}
	return out
}

type notificationView struct {
	ID            int64  `json:"id"`
	Type          string `json:"type"`
	Title         string `json:"title"`
	Message       string `json:"message"`
	IsRead        bool   `json:"is_read"`
	TransactionID *int64 `json:"transaction_id"`
	ReadAt        *int64 `json:"read_at"`
	CreatedAt     int64  `json:"created_at"`
}

func newNotificationView(n *repository.Notification) *notificationView {
	if n == nil {
		return nil
	}
	return &notificationView{
		ID:            n.ID,
		Type:          n.Type,
		Title:         n.Title,
		Message:       n.Message,
		IsRead:        n.IsRead,
		TransactionID: n.TransactionID,
		ReadAt:        n.ReadAt,
		CreatedAt:     n.CreatedAt,
	}
}

func newNotificationViews(rows []*repository.Notification) []*notificationView {
	out := make([]*notificationView, 0, len(rows))
	for _, n := range rows {
		out = append(out, newNotificationView(n))
	}
	return out
}

type helpRequestView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	Category  string `json:"category"`
	Priority  string `json:"priority"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

func newHelpRequestView(h *repository.HelpRequest) *helpRequestView {
	if h == nil {
		return nil
	}
	name := ""
	if h.UserName != nil {
		name = *h.UserName
	}
	return &helpRequestView{
		ID:        h.ID,
		Name:      name,
		Email:     h.UserEmail,
		Subject:   h.Subject,
		Message:   h.Message,
		Category:  h.Category,
		Priority:  h.Priority,
		Status:    h.Status,
		CreatedAt: h.CreatedAt,
	}
}

func newHelpRequestViews(rows []*repository.HelpRequest) []*helpRequestView {
	out := make([]*helpRequestView, 0, len(rows))
	for _, h := range rows {
		out = append(out, newHelpRequestView(h))
	}
	return out
}

type faqView struct {
	ID       int64  `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category"`
	Order    int64  `json:"order"`
}

func newFAQView(f *repository.FAQ) *faqView {
	if f == nil {
		return nil
	}
	return &faqView{
		ID:       f.ID,
		Question: f.Question,
		Answer:   f.Answer,
		Category: f.Category,
		Order:    f.DisplayOrder,
	}
}

func newFAQViews(rows []*repository.FAQ) []*faqView {
	out := make([]*faqView, 0, len(rows))
	for _, f := range rows {
		out = append(out, newFAQView(f))
	}
	return out
}
