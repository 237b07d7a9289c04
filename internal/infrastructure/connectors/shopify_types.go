package connectors

// Wire types for the Shopify admin GraphQL API.

type shopifyPageInfo struct {
	HasNextPage bool `json:"hasNextPage"`
}

type shopifyInventoryItem struct {
	ID      string `json:"id"`
	SKU     string `json:"sku"`
	Variant struct {
		DisplayName string `json:"displayName"`
	} `json:"variant"`
}

type shopifyInventoryLevel struct {
	ID        string               `json:"id"`
	Available int64                `json:"available"`
	Item      shopifyInventoryItem `json:"item"`
}

type shopifyInventoryLevelEdge struct {
	Cursor string                `json:"cursor"`
	Node   shopifyInventoryLevel `json:"node"`
}

type shopifyInventoryLevels struct {
	PageInfo shopifyPageInfo             `json:"pageInfo"`
	Edges    []shopifyInventoryLevelEdge `json:"edges"`
}

type shopifyLocation struct {
	ID              string                 `json:"id"`
	InventoryLevels shopifyInventoryLevels `json:"inventoryLevels"`
}

type shopifyGetInventoryData struct {
	Locations struct {
		Edges []struct {
			Node shopifyLocation `json:"node"`
		} `json:"edges"`
	} `json:"locations"`
}

type shopifyAdjustment struct {
	InventoryItemID string `json:"inventoryItemId"`
	AvailableDelta  int64  `json:"availableDelta"`
}

type shopifyUserError struct {
	Message string `json:"message"`
}

type shopifyUpdateInventoryData struct {
	InventoryBulkAdjustQuantityAtLocation struct {
		UserErrors []shopifyUserError `json:"userErrors"`
	} `json:"inventoryBulkAdjustQuantityAtLocation"`
}

type shopifyRegisterWebhooksData struct {
	CreateOrdersHook struct {
		UserErrors []shopifyUserError `json:"userErrors"`
	} `json:"createOrdersHook"`
	CancelOrdersHook struct {
		UserErrors []shopifyUserError `json:"userErrors"`
	} `json:"cancelOrdersHook"`
}

type shopifyCheckWebhooksData struct {
	WebhookSubscriptions struct {
		Edges []struct {
			Node struct {
				ID string `json:"id"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"webhookSubscriptions"`
}

type shopifyAccessTokenResponse struct {
	AccessToken string `json:"access_token"`
}

// shopifyOrderPayload is the REST webhook body for order events
type shopifyOrderPayload struct {
	CreatedAt string `json:"created_at"`
	LineItems []struct {
		SKU      string `json:"sku"`
		Quantity int64  `json:"quantity"`
		Tip      bool   `json:"tip"`
	} `json:"line_items"`
}
