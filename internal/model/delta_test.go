package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func baseVariant() *ProductVariant {
	w := 1.5
	return &ProductVariant{
		BaseModel:  BaseModel{ID: "v-1"},
		ProductID:  "p-1",
		MerchantID: "m-1",
		Name:       "Small",
		Unit:       "pcs",
		SKU:        strPtr("SKU-1"),
		Barcode:    strPtr("123456"),
		Weight:     &w,
		Attributes: JSONMap{"color": "red"},
	}
}

func TestApplyVariantDelta_OmittedFieldsUntouched(t *testing.T) {
	v := baseVariant()
	require.NoError(t, ApplyVariantDelta(v, JSONMap{"name": "Medium"}))

	require.Equal(t, "Medium", v.Name)
	require.Equal(t, "pcs", v.Unit)
	require.Equal(t, "SKU-1", *v.SKU)
	require.Equal(t, "123456", *v.Barcode)
}

func TestApplyVariantDelta_NullUnsetsNullableField(t *testing.T) {
	v := baseVariant()
	require.NoError(t, ApplyVariantDelta(v, JSONMap{
		"sku":    nil,
		"weight": nil,
	}))

	require.Nil(t, v.SKU)
	require.Nil(t, v.Weight)
	require.NotNil(t, v.Barcode)
}

func TestApplyVariantDelta_UnknownKeysLandInAttributes(t *testing.T) {
	v := baseVariant()
	require.NoError(t, ApplyVariantDelta(v, JSONMap{
		"roast_level": "dark",
		"origin":      "Sumatra",
	}))

	require.Equal(t, "dark", v.Attributes["roast_level"])
	require.Equal(t, "Sumatra", v.Attributes["origin"])
	require.Equal(t, "red", v.Attributes["color"])
}

func TestApplyVariantDelta_AttributeNullDeletesKey(t *testing.T) {
	v := baseVariant()
	require.NoError(t, ApplyVariantDelta(v, JSONMap{
		"attributes": map[string]interface{}{"color": nil, "size": "L"},
	}))

	_, ok := v.Attributes["color"]
	require.False(t, ok)
	require.Equal(t, "L", v.Attributes["size"])
}

func TestApplyVariantDelta_ProductReferenceImmutable(t *testing.T) {
	for _, key := range []string{"product", "product_id"} {
		v := baseVariant()
		err := ApplyVariantDelta(v, JSONMap{key: "p-2"})
		require.ErrorIs(t, err, ErrImmutableField)
		require.Equal(t, "p-1", v.ProductID)
	}
}

func TestApplyVariantDelta_ReservedKeysIgnored(t *testing.T) {
	v := baseVariant()
	require.NoError(t, ApplyVariantDelta(v, JSONMap{"id": "v-9", "merchant_id": "m-9"}))

	require.Equal(t, "v-1", v.ID)
	require.Equal(t, "m-1", v.MerchantID)
	_, ok := v.Attributes["id"]
	require.False(t, ok)
}

func TestApplyVariantDelta_TypeMismatch(t *testing.T) {
	v := baseVariant()
	require.Error(t, ApplyVariantDelta(v, JSONMap{"weight": "heavy"}))
	require.Error(t, ApplyVariantDelta(v, JSONMap{"name": 42.0}))
}

func TestApplyVariantDelta_PricesRemarshal(t *testing.T) {
	v := baseVariant()
	require.NoError(t, ApplyVariantDelta(v, JSONMap{
		"prices": []interface{}{
			map[string]interface{}{"location_id": "loc-1", "amount": 12.5, "currency": "USD"},
		},
	}))

	require.Len(t, v.Prices, 1)
	require.Equal(t, "loc-1", v.Prices[0].LocationID)
	require.Equal(t, 12.5, v.Prices[0].Amount)
}

func TestApplyProductDelta_KnownFields(t *testing.T) {
	p := &Product{Name: "Coffee", Brand: strPtr("Acme")}
	require.NoError(t, ApplyProductDelta(p, JSONMap{
		"name":        "Espresso Beans",
		"brand":       nil,
		"description": "dark roast",
		"category_id": "cat-2",
		"tags":        []interface{}{"coffee", "beans"},
	}))

	require.Equal(t, "Espresso Beans", p.Name)
	require.Nil(t, p.Brand)
	require.Equal(t, "dark roast", *p.Description)
	require.Equal(t, "cat-2", *p.CategoryID)
	require.Equal(t, StringList{"coffee", "beans"}, p.Tags)
}

func TestApplyProductDelta_UnknownFieldRejected(t *testing.T) {
	p := &Product{Name: "Coffee"}
	err := ApplyProductDelta(p, JSONMap{"roast_level": "dark"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "roast_level")
}

func TestApplyProductDelta_ImagesIgnored(t *testing.T) {
	p := &Product{Name: "Coffee", Images: ImageList{{URL: "https://cdn/x.png"}}}
	require.NoError(t, ApplyProductDelta(p, JSONMap{"images": []interface{}{}}))
	require.Len(t, p.Images, 1)
}
