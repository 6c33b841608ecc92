package database

// Migration bookkeeping
const (
	createMigrationsTableSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			migration_name VARCHAR(255) NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`

	selectMigrationsSQL = `SELECT migration_name FROM schema_migrations`

	insertMigrationSQL = `INSERT INTO schema_migrations (migration_name) VALUES ($1)`
)

// Locking
const (
	AdvisoryXactLockSQL = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`
)

// Catalog queries
const (
	GetTenantSQL = `
		SELECT id, name, domain, created_at
		FROM tenants WHERE id = $1`

	GetBranchSQL = `
		SELECT id, tenant_id, name
		FROM branches WHERE id = $1 AND tenant_id = $2`

	GetProductsSQL = `
		SELECT id, tenant_id, name, price, available
		FROM products WHERE tenant_id = $1 AND id = ANY($2)`

	GetTableSQL = `
		SELECT id, branch_id, number, capacity
		FROM tables WHERE id = $1`

	ListTablesSQL = `
		SELECT id, branch_id, number, capacity
		FROM tables WHERE branch_id = $1
		ORDER BY number ASC`
)

// Order queries
const (
	InsertOrderSQL = `
		INSERT INTO orders (id, tenant_id, branch_id, table_id, user_id, status, total, tax, discount,
			notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	InsertOrderItemSQL = `
		INSERT INTO order_items (id, order_id, product_id, product_name, qty, price, special_request,
			status, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	GetOrderSQL = `
		SELECT id, tenant_id, branch_id, table_id, user_id, status, total, tax, discount, notes,
			created_at, updated_at, completed_at
		FROM orders WHERE id = $1 AND tenant_id = $2`

	GetOrderForUpdateSQL = GetOrderSQL + ` FOR UPDATE`

	GetOrderItemsSQL = `
		SELECT id, order_id, product_id, product_name, qty, price, special_request, status, position,
			created_at
		FROM order_items WHERE order_id = $1
		ORDER BY position ASC`

	UpdateOrderSQL = `
		UPDATE orders SET status = $2, total = $3, completed_at = $4, updated_at = $5
		WHERE id = $1`

	DeleteOrderItemSQL = `
		DELETE FROM order_items WHERE id = $1 AND order_id = $2`

	OrderStatusTotalsSQL = `
		SELECT status, COUNT(*), COALESCE(SUM(total), 0)
		FROM orders
		WHERE tenant_id = $1 AND ($2::uuid IS NULL OR branch_id = $2)
		GROUP BY status`

	CompletedOrderTotalsSQL = `
		SELECT COUNT(*), COALESCE(SUM(total), 0), COALESCE(SUM(tax), 0), COALESCE(SUM(discount), 0)
		FROM orders
		WHERE tenant_id = $1 AND status = 'COMPLETED' AND created_at >= $2 AND created_at < $3`
)

// Kitchen ticket queries
const (
	InsertTicketSQL = `
		INSERT INTO kitchen_tickets (id, order_id, tenant_id, branch_id, payload, dispatch_status,
			print_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	ticketColumns = `
		SELECT id, order_id, tenant_id, branch_id, payload, dispatch_status, print_count,
			last_queued_at, last_printed_at, created_at
		FROM kitchen_tickets`

	GetTicketSQL = ticketColumns + ` WHERE id = $1`

	ListTicketsByBranchSQL = ticketColumns + `
		WHERE branch_id = $1 AND tenant_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	CountTicketsByBranchSQL = `
		SELECT COUNT(*) FROM kitchen_tickets WHERE branch_id = $1 AND tenant_id = $2`

	ListUndispatchedTicketsSQL = ticketColumns + `
		WHERE dispatch_status = 'PENDING' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2`

	MarkTicketQueuedSQL = `
		UPDATE kitchen_tickets
		SET dispatch_status = CASE WHEN dispatch_status = 'PRINTED' THEN dispatch_status ELSE 'QUEUED' END,
			last_queued_at = $2
		WHERE id = $1`

	MarkTicketPrintedSQL = `
		UPDATE kitchen_tickets
		SET dispatch_status = 'PRINTED', print_count = print_count + 1, last_printed_at = $2
		WHERE id = $1`
)

// Booking queries
const (
	InsertBookingSQL = `
		INSERT INTO bookings (id, tenant_id, branch_id, table_id, customer_name, customer_phone,
			party_size, start_time, end_time, deposit, notes, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	bookingColumns = `
		SELECT id, tenant_id, branch_id, table_id, customer_name, customer_phone, party_size,
			start_time, end_time, deposit, notes, status, created_at, updated_at
		FROM bookings`

	GetBookingSQL = bookingColumns + ` WHERE id = $1 AND tenant_id = $2`

	GetBookingForUpdateSQL = GetBookingSQL + ` FOR UPDATE`

	UpdateBookingSQL = `
		UPDATE bookings SET status = $2, notes = $3, updated_at = $4
		WHERE id = $1`

	ListTableHoldsSQL = bookingColumns + `
		WHERE table_id = ANY($1) AND status IN ('PENDING', 'CONFIRMED') AND end_time > $2
		ORDER BY start_time ASC`

	ListBookingsByBranchSQL = bookingColumns + `
		WHERE branch_id = $1 AND tenant_id = $2
		ORDER BY start_time DESC`
)

// Invoice and payment queries
const (
	InsertInvoiceSQL = `
		INSERT INTO invoices (id, order_id, tenant_id, invoice_number, amount, tax, discount, status,
			due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	invoiceColumns = `
		SELECT id, order_id, tenant_id, invoice_number, amount, tax, discount, status, due_date,
			paid_at, created_at, updated_at
		FROM invoices`

	GetInvoiceSQL = invoiceColumns + ` WHERE id = $1 AND tenant_id = $2`

	GetInvoiceForUpdateSQL = GetInvoiceSQL + ` FOR UPDATE`

	GetActiveInvoiceForOrderSQL = invoiceColumns + `
		WHERE order_id = $1 AND tenant_id = $2 AND status <> 'CANCELLED'`

	UpdateInvoiceSQL = `
		UPDATE invoices SET status = $2, paid_at = $3, updated_at = $4
		WHERE id = $1`

	NextInvoiceSequenceSQL = `
		INSERT INTO invoice_sequences (tenant_id, day, last_seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (tenant_id, day) DO UPDATE SET last_seq = invoice_sequences.last_seq + 1
		RETURNING last_seq`

	ListInvoicesSQL = invoiceColumns + `
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	CountInvoicesSQL = `SELECT COUNT(*) FROM invoices WHERE tenant_id = $1`

	InvoiceStatusTotalsSQL = `
		SELECT status, COUNT(*), COALESCE(SUM(amount), 0)
		FROM invoices WHERE tenant_id = $1
		GROUP BY status`

	InsertPaymentSQL = `
		INSERT INTO payments (id, invoice_id, tenant_id, method, amount, status, reference,
			idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	paymentColumns = `
		SELECT id, invoice_id, tenant_id, method, amount, status, reference,
			COALESCE(idempotency_key, ''), created_at
		FROM payments`

	ListPaymentsSQL = paymentColumns + `
		WHERE invoice_id = $1
		ORDER BY created_at DESC`

	GetPaymentByIdempotencyKeySQL = paymentColumns + `
		WHERE invoice_id = $1 AND idempotency_key = $2`

	SumCompletedPaymentsSQL = `
		SELECT COALESCE(SUM(amount), 0) FROM payments
		WHERE tenant_id = $1 AND status = 'COMPLETED'`
)
