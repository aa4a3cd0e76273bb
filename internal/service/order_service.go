package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/perfume-mall/internal/model"
	"github.com/d60-Lab/perfume-mall/internal/pricing"
	"github.com/d60-Lab/perfume-mall/internal/repository"
	"github.com/d60-Lab/perfume-mall/pkg/logger"
)

var (
	ErrAddressNotFound    = errors.New("address not found")
	ErrAddressNotOwned    = errors.New("address does not belong to user")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product is unavailable")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidTransition  = errors.New("order status transition not permitted")
	ErrCancelNotAllowed   = errors.New("order can no longer be cancelled")
)

// orderTransitions 状态机迁移表: from -> 允许的 to 集合
// DELIVERED 与 CANCELLED 为终态
var orderTransitions = map[string][]string{
	model.OrderStatusPending:    {model.OrderStatusConfirmed, model.OrderStatusCancelled},
	model.OrderStatusConfirmed:  {model.OrderStatusProcessing, model.OrderStatusShipped, model.OrderStatusCancelled},
	model.OrderStatusProcessing: {model.OrderStatusShipped, model.OrderStatusCancelled},
	model.OrderStatusShipped:    {model.OrderStatusDelivered},
}

func canTransition(from, to string) bool {
	for _, s := range orderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CreateOrderInput 购物车结算输入
type CreateOrderInput struct {
	UserID         string
	AddressID      string
	PaymentMethod  string
	DeliveryMethod string
	GiftWrap       string
	CoinsToUse     int64
	CouponCode     string
}

// QuickBuyInput 快捷购买输入（跳过购物车，运费走固定档位）
type QuickBuyInput struct {
	UserID         string
	AddressID      string
	ProductID      string
	Quantity       int64
	PaymentMethod  string
	DeliveryMethod string
	GiftWrap       string
	CoinsToUse     int64
	CouponCode     string
}

// OrderService 订单生命周期与库存协调
type OrderService interface {
	Create(ctx context.Context, in CreateOrderInput) (*model.Order, error)
	QuickBuy(ctx context.Context, in QuickBuyInput) (*model.Order, error)
	UpdateStatus(ctx context.Context, orderID, newStatus, trackingNumber string) (*model.Order, error)
	// Cancel 用户侧取消，仅允许 PENDING / CONFIRMED
	Cancel(ctx context.Context, userID, orderID string) error
	Get(ctx context.Context, orderID string) (*model.Order, error)
	GetForUser(ctx context.Context, userID, orderID string) (*model.Order, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]*model.Order, error)
}

type orderService struct {
	db        *gorm.DB
	orders    repository.OrderRepository
	products  repository.ProductRepository
	carts     repository.CartRepository
	addresses repository.AddressRepository
	coupons   CouponService
	wallet    WalletService
	rates     pricing.Rates
}

// NewOrderService 创建订单服务
func NewOrderService(db *gorm.DB, orders repository.OrderRepository, products repository.ProductRepository, carts repository.CartRepository, addresses repository.AddressRepository, coupons CouponService, wallet WalletService, rates pricing.Rates) OrderService {
	return &orderService{
		db:        db,
		orders:    orders,
		products:  products,
		carts:     carts,
		addresses: addresses,
		coupons:   coupons,
		wallet:    wallet,
		rates:     rates,
	}
}

type checkedItem struct {
	product *model.Product
	qty     int64
}

func (s *orderService) Create(ctx context.Context, in CreateOrderInput) (*model.Order, error) {
	if err := s.checkAddress(ctx, in.UserID, in.AddressID); err != nil {
		return nil, err
	}

	cart, err := s.carts.GetOrCreate(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	cartItems, err := s.carts.Items(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	if len(cartItems) == 0 {
		return nil, ErrEmptyCart
	}

	// 先整体校验所有条目，再触碰任何状态
	ids := make([]string, len(cartItems))
	for i, it := range cartItems {
		ids[i] = it.ProductID
	}
	prods, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Product, len(prods))
	for _, p := range prods {
		byID[p.ID] = p
	}
	items := make([]checkedItem, 0, len(cartItems))
	for _, it := range cartItems {
		p, ok := byID[it.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, it.ProductID)
		}
		if err := checkAvailability(p, it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, checkedItem{product: p, qty: it.Quantity})
	}

	shipping := func(subtotal decimal.Decimal) decimal.Decimal {
		return pricing.CheckoutShipping(s.rates, subtotal, in.DeliveryMethod)
	}
	return s.placeOrder(ctx, placement{
		userID:        in.UserID,
		addressID:     in.AddressID,
		paymentMethod: in.PaymentMethod,
		giftWrap:      in.GiftWrap,
		coinsToUse:    in.CoinsToUse,
		couponCode:    in.CouponCode,
		items:         items,
		shippingFor:   shipping,
		clearCartID:   cart.ID,
	})
}

func (s *orderService) QuickBuy(ctx context.Context, in QuickBuyInput) (*model.Order, error) {
	if in.Quantity <= 0 {
		in.Quantity = 1
	}
	if err := s.checkAddress(ctx, in.UserID, in.AddressID); err != nil {
		return nil, err
	}

	p, err := s.products.GetByID(ctx, in.ProductID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, in.ProductID)
	}
	if err != nil {
		return nil, err
	}
	if err := checkAvailability(p, in.Quantity); err != nil {
		return nil, err
	}

	// 快捷购买不享受满额免邮
	shipping := func(decimal.Decimal) decimal.Decimal {
		return pricing.QuickShipping(s.rates, in.DeliveryMethod)
	}
	return s.placeOrder(ctx, placement{
		userID:        in.UserID,
		addressID:     in.AddressID,
		paymentMethod: in.PaymentMethod,
		giftWrap:      in.GiftWrap,
		coinsToUse:    in.CoinsToUse,
		couponCode:    in.CouponCode,
		items:         []checkedItem{{product: p, qty: in.Quantity}},
		shippingFor:   shipping,
	})
}

// placement 聚合两条下单路径共用的参数
type placement struct {
	userID        string
	addressID     string
	paymentMethod string
	giftWrap      string
	coinsToUse    int64
	couponCode    string
	items         []checkedItem
	shippingFor   func(subtotal decimal.Decimal) decimal.Decimal
	clearCartID   string
}

func (s *orderService) placeOrder(ctx context.Context, p placement) (*model.Order, error) {
	subtotal := decimal.Zero
	priceItems := make([]pricing.Item, len(p.items))
	for i, it := range p.items {
		priceItems[i] = pricing.Item{UnitPrice: it.product.Price, Quantity: it.qty}
		subtotal = subtotal.Add(it.product.Price.Mul(decimal.NewFromInt(it.qty)))
	}

	var coupon *model.Coupon
	couponDiscount := decimal.Zero
	if p.couponCode != "" {
		validation, err := s.coupons.Validate(ctx, p.couponCode, subtotal)
		if err != nil {
			return nil, err
		}
		coupon = validation.Coupon
		couponDiscount = validation.DiscountAmount
	}

	coinBalance, err := s.wallet.Balance(ctx, p.userID)
	if err != nil {
		return nil, err
	}

	quote := pricing.Compute(s.rates, pricing.Input{
		Items:          priceItems,
		DeliveryFee:    p.shippingFor(subtotal),
		GiftWrapFee:    pricing.GiftWrapFee(s.rates, p.giftWrap),
		CouponDiscount: couponDiscount,
		CoinsToUse:     p.coinsToUse,
		CoinBalance:    coinBalance,
	})

	order := &model.Order{
		ID:            uuid.New().String(),
		OrderNumber:   generateOrderNumber(),
		UserID:        p.userID,
		AddressID:     p.addressID,
		PaymentMethod: p.paymentMethod,
		Subtotal:      quote.Subtotal,
		Tax:           quote.Tax,
		ShippingFee:   quote.ShippingFee,
		GiftWrapFee:   quote.GiftWrapFee,
		Discount:      quote.Discount,
		Total:         quote.Total,
		CoinsUsed:     quote.CoinsUsed,
		CoinsEarned:   quote.CoinsEarned,
		OrderStatus:   model.OrderStatusPending,
		PaymentStatus: model.PaymentStatusPending,
	}
	if coupon != nil {
		order.CouponID = &coupon.ID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		for _, it := range p.items {
			item := &model.OrderItem{
				ID:        uuid.New().String(),
				OrderID:   order.ID,
				ProductID: it.product.ID,
				Quantity:  it.qty,
				Price:     it.product.Price,
			}
			if err := tx.Create(item).Error; err != nil {
				return err
			}
			// 提交时二次校验库存，条件未命中则整单回滚
			ok, err := repository.DecrementStock(tx, it.product.ID, it.qty)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s", ErrInsufficientStock, it.product.Name)
			}
		}
		if coupon != nil {
			// 用券计数递增同样带条件守卫，关闭 validate 与提交之间的窗口
			res := tx.Model(&model.Coupon{}).
				Where("id = ? AND (usage_limit IS NULL OR usage_count < usage_limit)", coupon.ID).
				Update("usage_count", gorm.Expr("usage_count + 1"))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrCouponUsageLimitHit
			}
		}
		if p.clearCartID != "" {
			return repository.ClearCart(tx, p.clearCartID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 订单为主事实，金币扣减失败不回滚订单，落补偿任务待重放
	if quote.CoinsUsed > 0 {
		s.applyWalletEffect(ctx, model.ReconKindSpend, p.userID, order.ID, quote.CoinsUsed)
	}
	return order, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, orderID, newStatus, trackingNumber string) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if !canTransition(order.OrderStatus, newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.OrderStatus, newStatus)
	}

	now := time.Now()
	updates := map[string]any{"order_status": newStatus}
	switch newStatus {
	case model.OrderStatusConfirmed:
		updates["confirmed_at"] = now
		updates["payment_status"] = model.PaymentStatusPaid
	case model.OrderStatusShipped:
		updates["shipped_at"] = now
		if trackingNumber != "" {
			updates["tracking_number"] = trackingNumber
		}
	case model.OrderStatusDelivered:
		updates["delivered_at"] = now
	case model.OrderStatusCancelled:
		updates["cancelled_at"] = now
		updates["payment_status"] = model.PaymentStatusRefunded
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 条件更新关闭并发迁移竞争: 只有仍处于旧状态的订单才会被改写
		res := tx.Model(&model.Order{}).
			Where("id = ? AND order_status = ?", order.ID, order.OrderStatus).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: concurrent update on order %s", ErrInvalidTransition, order.ID)
		}
		if newStatus == model.OrderStatusCancelled {
			return restoreOrderStock(tx, order)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch newStatus {
	case model.OrderStatusDelivered:
		// 签收一次性发放金币
		if order.CoinsEarned > 0 && order.DeliveredAt == nil {
			s.applyWalletEffect(ctx, model.ReconKindAward, order.UserID, order.ID, order.CoinsEarned)
		}
	case model.OrderStatusCancelled:
		if order.CoinsUsed > 0 {
			s.applyWalletEffect(ctx, model.ReconKindRefund, order.UserID, order.ID, order.CoinsUsed)
		}
	}

	return s.orders.GetByID(ctx, orderID)
}

func (s *orderService) Cancel(ctx context.Context, userID, orderID string) error {
	order, err := s.orders.GetForUser(ctx, userID, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}
	if order.OrderStatus != model.OrderStatusPending && order.OrderStatus != model.OrderStatusConfirmed {
		return fmt.Errorf("%w: status %s", ErrCancelNotAllowed, order.OrderStatus)
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Order{}).
			Where("id = ? AND order_status IN ?", order.ID,
				[]string{model.OrderStatusPending, model.OrderStatusConfirmed}).
			Updates(map[string]any{
				"order_status":   model.OrderStatusCancelled,
				"payment_status": model.PaymentStatusRefunded,
				"cancelled_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: status changed concurrently", ErrCancelNotAllowed)
		}
		return restoreOrderStock(tx, order)
	})
	if err != nil {
		return err
	}

	if order.CoinsUsed > 0 {
		s.applyWalletEffect(ctx, model.ReconKindRefund, userID, order.ID, order.CoinsUsed)
	}
	if order.CoinsEarned > 0 {
		s.clawBack(ctx, userID, order.ID, order.CoinsEarned)
	}
	return nil
}

func (s *orderService) Get(ctx context.Context, orderID string) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	return order, err
}

func (s *orderService) GetForUser(ctx context.Context, userID, orderID string) (*model.Order, error) {
	order, err := s.orders.GetForUser(ctx, userID, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	return order, err
}

func (s *orderService) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*model.Order, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.orders.ListByUser(ctx, userID, offset, limit)
}

func (s *orderService) checkAddress(ctx context.Context, userID, addressID string) error {
	addr, err := s.addresses.GetByID(ctx, addressID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrAddressNotFound
	}
	if err != nil {
		return err
	}
	if addr.UserID != userID {
		return ErrAddressNotOwned
	}
	return nil
}

func checkAvailability(p *model.Product, qty int64) error {
	if !p.IsActive {
		return fmt.Errorf("%w: %s", ErrProductUnavailable, p.Name)
	}
	if p.Stock < qty {
		return fmt.Errorf("%w: %s (have %d, want %d)", ErrInsufficientStock, p.Name, p.Stock, qty)
	}
	return nil
}

// restoreOrderStock 按订单条目恢复库存与销量，与下单扣减严格对称
func restoreOrderStock(tx *gorm.DB, order *model.Order) error {
	for _, it := range order.Items {
		if err := repository.RestoreStock(tx, it.ProductID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// applyWalletEffect 执行订单已提交后的金币副作用；失败落补偿任务
func (s *orderService) applyWalletEffect(ctx context.Context, kind, userID, orderID string, coins int64) {
	var err error
	switch kind {
	case model.ReconKindSpend:
		err = s.wallet.Spend(ctx, userID, coins, &orderID, "coins used on order")
	case model.ReconKindAward:
		err = s.wallet.Award(ctx, userID, coins, model.CoinSourceOrderPurchase,
			"coins earned on delivered order", TxRefs{OrderID: &orderID})
	case model.ReconKindRefund:
		err = s.wallet.Refund(ctx, userID, coins, orderID, "coins refunded on cancelled order")
	}
	if err == nil {
		return
	}
	logger.Error("wallet side effect failed, queueing reconciliation",
		zap.String("kind", kind),
		zap.String("order_id", orderID),
		zap.String("user_id", userID),
		zap.Int64("coins", coins),
		zap.Error(err))
	s.enqueueRecon(ctx, kind, userID, orderID, coins, err)
}

// clawBack 取消时回收已发放金币；余额不足则跳过扣减，
// 仅落 clawback 任务供人工结算（不自动追债）
func (s *orderService) clawBack(ctx context.Context, userID, orderID string, coins int64) {
	balance, err := s.wallet.Balance(ctx, userID)
	if err == nil && balance >= coins {
		if err = s.wallet.Spend(ctx, userID, coins, &orderID, "clawback of coins earned on cancelled order"); err == nil {
			return
		}
	}
	s.enqueueRecon(ctx, model.ReconKindClawback, userID, orderID, coins, err)
}

func (s *orderService) enqueueRecon(ctx context.Context, kind, userID, orderID string, coins int64, cause error) {
	task := &model.ReconciliationTask{
		ID:      uuid.New().String(),
		Kind:    kind,
		UserID:  userID,
		OrderID: orderID,
		Coins:   coins,
		Status:  model.ReconStatusPending,
	}
	if cause != nil {
		task.LastError = cause.Error()
	}
	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		logger.Error("failed to enqueue reconciliation task",
			zap.String("kind", kind),
			zap.String("order_id", orderID),
			zap.Error(err))
	}
}

// generateOrderNumber 生成展示用订单号
func generateOrderNumber() string {
	return time.Now().Format("20060102150405") + fmt.Sprintf("%06d", rand.Intn(1000000))
}
