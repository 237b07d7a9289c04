package connectors

// GraphQL documents and wire types for the point-of-sale API.

const posGetInventoryQuery = `
  query GetInventory {
    user {
      products {
        id
        name
        sku
        quantity
      }
    }
  }
`

const posUpdateInventoryQuery = `
  mutation UpdateInventory($product: ProductMod!) {
    modUserProduct(product: $product) {
      id
      name
      sku
      quantity
    }
  }
`

const posRegisterWebhooksQuery = `
  mutation RegisterForWebhooks($createCallback: String!, $cancelledCallback: String!) {
    createOrdersHook: createWebhookNewRecord(webhook: { url: $createCallback }) { id }
    cancelOrdersHook: createWebhookDeleteRecord(webhook: { url: $cancelledCallback }) { id }
  }
`

const posCheckWebhooksQuery = `
  query CheckWebhooks {
    user {
      webhooks {
        newRecord { id url }
        deleteRecord { id url }
      }
    }
  }
`

const posDeleteNewRecordWebhookQuery = `
  mutation UnregisterCreateRecordWebhook($id: ID!) {
    deleteWebhookNewRecord(id: $id) { id }
  }
`

const posDeleteDeleteRecordWebhookQuery = `
  mutation UnregisterDeleteRecordWebhook($id: ID!) {
    deleteWebhookDeleteRecord(id: $id) { id }
  }
`

type posProduct struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SKU      string `json:"sku"`
	Quantity int64  `json:"quantity"`
}

type posGetInventoryData struct {
	User struct {
		Products []posProduct `json:"products"`
	} `json:"user"`
}

type posWebhook struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type posCheckWebhooksData struct {
	User struct {
		Webhooks struct {
			NewRecord    []posWebhook `json:"newRecord"`
			DeleteRecord []posWebhook `json:"deleteRecord"`
		} `json:"webhooks"`
	} `json:"user"`
}
