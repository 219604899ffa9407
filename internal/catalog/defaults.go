package catalog

import "tablero/internal/model"

// Table and view names of the built-in catalog.
const (
	TablePayments     = "payments"
	TableCustomers    = "customers"
	TableProducts     = "products"
	TableOrders       = "orders"
	TableCategories   = "categories"
	TableOrderDetails = "order_details"
	TableAuditLog     = "log_auditoria"
	TableUsers        = "usuarios"

	ViewOrderAudit       = "auditoria_completa_ordenes"
	ViewRecentOrders     = "auditoria_ordenes_recientes"
	ViewLargePayments    = "auditoria_pagos_altos"
	ViewCustomerPurchase = "historial_compras_clientes"
	ViewAuditLog         = "vista_log_auditoria"
)

func defaultSpecs() []model.TableSpec {
	return []model.TableSpec{
		{Name: TablePayments, PrimaryKey: []string{"payment_id"}, UserOwned: true},
		{Name: TableCustomers, PrimaryKey: []string{"customer_id"}, UserOwned: true},
		{Name: TableProducts, PrimaryKey: []string{"product_id"}, UserOwned: true},
		{Name: TableOrders, PrimaryKey: []string{"order_id"}, UserOwned: true},
		{Name: TableCategories, PrimaryKey: []string{"category_id"}, UserOwned: true},
		{Name: TableOrderDetails, PrimaryKey: []string{"order_id", "product_id"}, UserOwned: true},
		{Name: TableAuditLog, PrimaryKey: []string{"id"}},
		{Name: TableUsers, PrimaryKey: []string{"id"}},

		{Name: ViewOrderAudit, PrimaryKey: []string{"order_id"}, View: true},
		{Name: ViewRecentOrders, PrimaryKey: []string{"order_id"}, View: true},
		{Name: ViewLargePayments, PrimaryKey: []string{"payment_id", "order_id"}, View: true},
		{Name: ViewCustomerPurchase, PrimaryKey: []string{"customer_id"}, View: true},
		{Name: ViewAuditLog, PrimaryKey: []string{"id"}, View: true},
	}
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(defaultSpecs())
	if err != nil {
		panic("catalog: invalid built-in catalog: " + err.Error())
	}
	return c
}
