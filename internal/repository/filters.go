package repository

// ShopFilter constrains storefront listings.
type ShopFilter struct {
	Keyword string
	// CategoryID narrows to shops stocking products in the category.
	CategoryID *int64
	Verified   *bool
	Limit      int
	Offset     int
}

// ProductFilter constrains product listings.
type ProductFilter struct {
	ShopID     *int64
	CategoryID *int64
	Keyword    string
	Featured   *bool
	Available  *bool
	Limit      int
	Offset     int
}

// OrderFilter constrains order listings for senders and couriers.
type OrderFilter struct {
	SenderID  *int64
	CourierID *int64
	Status    *string
	Limit     int
	Offset    int
}

// TransactionFilter constrains wallet transaction listings.
type TransactionFilter struct {
	UserID  int64
	Type    *string
	Status  *string
	StartAt *int64 // nil = no lower bound
	EndAt   *int64 // nil = no upper bound
	Limit   int
	Offset  int
}

// NotificationFilter constrains notification listings.
type NotificationFilter struct {
	UserID int64
	IsRead *bool
	Type   *string
	Limit  int
	Offset int
}

// VehicleFilter constrains a courier's vehicle listings.
type VehicleFilter struct {
	CourierID          int64
	VehicleType        *string
	OwnershipCondition *string
	IsActive           *bool
	Keyword            string
}

// HelpRequestFilter constrains help request listings.
type HelpRequestFilter struct {
	UserID *int64
	Email  *string
	Status *string
	Limit  int
	Offset int
}
