package bot

import (
	"github.com/m3rciful/marketbot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// Callback uniques for the menu buttons.
const (
	uniqueAddProduct     = "add_product"
	uniqueMyProducts     = "my_products"
	uniqueOrdersReceived = "orders_received"

	uniqueBrowseProducts = "browse_products"
	uniqueViewCart       = "view_cart"
	uniqueCheckout       = "checkout"
	uniqueMyOrders       = "my_orders"
)

// SellerMenu is the main menu shown to registered sellers.
func SellerMenu() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "➕ Add Product", Unique: uniqueAddProduct},
		{Text: "📦 My Products", Unique: uniqueMyProducts},
		{Text: "📬 Orders Received", Unique: uniqueOrdersReceived},
	})
}

// BuyerMenu is the buyer-side menu; its actions are not wired yet.
func BuyerMenu() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "🛍️ Browse Products", Unique: uniqueBrowseProducts},
		{Text: "🛒 View Cart", Unique: uniqueViewCart},
		{Text: "✅ Checkout", Unique: uniqueCheckout},
		{Text: "📦 My Orders", Unique: uniqueMyOrders},
	})
}

func btnEndpoint(unique string) *tele.Btn {
	return &tele.Btn{Unique: unique}
}
