package connectors

// GraphQL documents for the Shopify admin API.

const shopifyGetInventoryQuery = `
  query GetInventory($after: String) {
    locations(first: 1) {
      pageInfo { hasNextPage }
      edges {
        cursor
        node {
          id
          inventoryLevels(first: 50, after: $after) {
            pageInfo { hasNextPage }
            edges {
              cursor
              node {
                id
                available
                item {
                  id
                  sku
                  variant { displayName }
                }
              }
            }
          }
        }
      }
    }
  }
`

const shopifyUpdateInventoryQuery = `
  mutation UpdateInventory($location: ID!, $adjustments: [InventoryAdjustItemInput!]!) {
    inventoryBulkAdjustQuantityAtLocation(inventoryItemAdjustments: $adjustments, locationId: $location) {
      userErrors {
        field
        message
      }
    }
  }
`

const shopifyRegisterWebhooksQuery = `
  mutation RegisterForWebhooks($createCallback: URL!, $cancelledCallback: URL!) {
    createOrdersHook: webhookSubscriptionCreate(topic: ORDERS_CREATE, webhookSubscription: { callbackUrl: $createCallback, format: JSON }) {
      userErrors { message }
    }
    cancelOrdersHook: webhookSubscriptionCreate(topic: ORDERS_CANCELLED, webhookSubscription: { callbackUrl: $cancelledCallback, format: JSON }) {
      userErrors { message }
    }
  }
`

const shopifyCheckWebhooksQuery = `
  query CheckWebhooks {
    webhookSubscriptions(first: 2, topics: [ORDERS_CREATE, ORDERS_CANCELLED]) {
      edges { node { id } }
    }
  }
`

const shopifyUnregisterWebhookQuery = `
  mutation UnregisterWebhook($id: ID!) {
    webhookSubscriptionDelete(id: $id) {
      userErrors { message }
    }
  }
`
