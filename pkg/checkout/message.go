package checkout

import (
	"errors"
	"net/url"
	"strings"

	"clouddesign.com.br/storefront/pkg/models"
)

var (
	ErrMissingName       = errors.New("customer name is required")
	ErrMissingPhone      = errors.New("customer phone is required")
	ErrMissingShopNumber = errors.New("shop whatsapp number is not configured")
	ErrEmptyCart         = errors.New("cart is empty")
)

const defaultShopName = "Cloud Design"

// FormatMessage renders the order text sent to the shop over WhatsApp. The
// output depends only on its arguments.
func FormatMessage(shopName string, state models.CartState, summary Summary, customer models.Customer) (string, error) {
	customer = customer.Trimmed()
	if customer.Name == "" {
		return "", ErrMissingName
	}
	if customer.Phone == "" {
		return "", ErrMissingPhone
	}
	shopName = strings.TrimSpace(shopName)
	if shopName == "" {
		shopName = defaultShopName
	}

	var b strings.Builder
	b.WriteString("🚀 *NOVO PEDIDO - " + strings.ToUpper(shopName) + "*\n\n")
	b.WriteString("👤 *CLIENTE:* " + customer.Name + "\n")
	b.WriteString("📞 *WHATSAPP:* " + customer.Phone + "\n\n")
	b.WriteString("🛒 *ITENS DO PEDIDO:*\n")

	for _, item := range state.Items {
		b.WriteString("✅ " + item.ProductName + "\n")
		b.WriteString("   _Variação: " + item.Variant.Label() + "_\n")
		b.WriteString("   *Valor: R$ " + item.Price().StringFixed(2) + "*\n\n")
	}

	b.WriteString("──────────────\n")
	b.WriteString("💰 *SUBTOTAL:* R$ " + summary.Subtotal.StringFixed(2) + "\n")
	if state.Coupon != nil {
		b.WriteString("🎫 *CUPOM:* " + state.Coupon.Code + " (-" + state.Coupon.DiscountPercent.String() + "%)\n")
		b.WriteString("🎁 *DESCONTO:* - R$ " + summary.DiscountAmount.StringFixed(2) + "\n")
	}
	b.WriteString("\n✅ *TOTAL FINAL: R$ " + summary.Total.StringFixed(2) + "*\n")
	if summary.GoalReached {
		b.WriteString("🚚 *BÔNUS ALCANÇADO:* Frete Grátis!\n")
	}
	b.WriteString("\n_Aguardando confirmação para iniciar a produção!_ 🎨")

	return strings.TrimSpace(b.String()), nil
}

// componentReplacer undoes the escapes url.QueryEscape applies to characters
// that encodeURIComponent leaves alone.
var componentReplacer = strings.NewReplacer(
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeMessage percent-encodes msg for a wa.me text parameter: every byte
// outside A-Z a-z 0-9 - _ . ! ~ * ' ( ) is escaped and spaces become "+".
func EncodeMessage(msg string) string {
	return componentReplacer.Replace(url.QueryEscape(msg))
}

// DigitsOnly strips everything but ASCII digits from a phone number.
func DigitsOnly(phone string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
}

// WhatsAppLink builds the deep link that opens a chat with phone and msg
// prefilled. It fails when phone has no digits.
func WhatsAppLink(phone, msg string) (string, error) {
	digits := DigitsOnly(phone)
	if digits == "" {
		return "", ErrMissingShopNumber
	}
	return "https://wa.me/" + digits + "?text=" + EncodeMessage(strings.TrimSpace(msg)), nil
}
