package service_test

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"
	"time"

	"github.com/medsupply/medsupply-backend/internal/requisition/repository"
	"github.com/medsupply/medsupply-backend/internal/requisition/service"
	stockrepo "github.com/medsupply/medsupply-backend/internal/stock/repository"
	stockservice "github.com/medsupply/medsupply-backend/internal/stock/service"
	"github.com/medsupply/medsupply-backend/pkg/database"
	"github.com/medsupply/medsupply-backend/pkg/errors"
	"github.com/medsupply/medsupply-backend/pkg/logger"
	"github.com/medsupply/medsupply-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	flag.Parse()
	ctx := context.Background()

	if !testing.Short() {
		var err error
		suite, err = testutil.NewIntegrationSuite(ctx)
		if err != nil {
			log.Fatalf("failed to create integration suite: %v", err)
		}
		defer suite.Cleanup(ctx)
		defer testutil.TerminateContainer(ctx)
	}

	os.Exit(m.Run())
}

// reqWorld is a seeded schema with a central warehouse holding stock of
// one drug, plus a requesting clinic.
type reqWorld struct {
	db           *database.DB
	svc          *service.RequisitionService
	stockSvc     *stockservice.StockService
	entryRepo    *stockrepo.StockEntryRepository
	movementRepo *stockrepo.MovementRepository
	central      testutil.LocationFixture
	clinic       testutil.LocationFixture
	warehouseOp  testutil.UserFixture
	clinicUser   testutil.UserFixture
	drug         testutil.DrugFixture
	supplier     testutil.SupplierFixture
}

func setupReqWorld(t *testing.T, ctx context.Context, name string, centralStock int) *reqWorld {
	t.Helper()

	db := suite.SetupSchema(t, ctx, name)

	central := suite.Fixtures.CentralWarehouse()
	clinic := suite.Fixtures.Location()
	testutil.SeedLocation(t, ctx, db, central)
	testutil.SeedLocation(t, ctx, db, clinic)

	warehouseOp := suite.Fixtures.User(central.ID)
	clinicUser := suite.Fixtures.User(clinic.ID)
	testutil.SeedUser(t, ctx, db, warehouseOp)
	testutil.SeedUser(t, ctx, db, clinicUser)

	drug := suite.Fixtures.Drug()
	testutil.SeedDrug(t, ctx, db, drug)
	supplier := suite.Fixtures.Supplier()
	testutil.SeedSupplier(t, ctx, db, supplier)

	entryRepo := stockrepo.NewStockEntryRepository(db)
	movementRepo := stockrepo.NewMovementRepository(db)
	locationRepo := stockrepo.NewLocationRepository(db)
	drugRepo := stockrepo.NewDrugRepository(db)
	transferRepo := stockrepo.NewTransferRepository(db)
	testLog := logger.New("test", "test")

	stockSvc := stockservice.NewStockService(
		db,
		stockrepo.NewLotRepository(db),
		entryRepo,
		movementRepo,
		transferRepo,
		nil,
		testLog,
	)

	svc := service.NewRequisitionService(
		db,
		repository.NewRequisitionRepository(db),
		entryRepo,
		movementRepo,
		locationRepo,
		drugRepo,
		transferRepo,
		nil,
		testLog,
	)

	w := &reqWorld{
		db:           db,
		svc:          svc,
		stockSvc:     stockSvc,
		entryRepo:    entryRepo,
		movementRepo: movementRepo,
		central:      central,
		clinic:       clinic,
		warehouseOp:  warehouseOp,
		clinicUser:   clinicUser,
		drug:         drug,
		supplier:     supplier,
	}

	if centralStock > 0 {
		_, err := stockSvc.ReceiveLot(ctx, stockservice.ReceiveLotInput{
			LocationID:      central.ID,
			UserID:          warehouseOp.ID,
			DrugID:          drug.ID,
			SupplierID:      supplier.ID,
			LotCode:         "LOT-SEED",
			ManufactureDate: time.Now().AddDate(-1, 0, 0),
			ExpiryDate:      time.Now().AddDate(1, 0, 0),
			Quantity:        centralStock,
		})
		require.NoError(t, err)
	}

	return w
}

func (w *reqWorld) open(t *testing.T, ctx context.Context, quantity int) (*repository.Requisition, []*repository.RequisitionItem) {
	t.Helper()
	req, items, err := w.svc.Create(ctx, service.CreateInput{
		RequestingLocationID: w.clinic.ID,
		RequestingUserID:     w.clinicUser.ID,
		Items: []service.CreateItemInput{
			{DrugID: w.drug.ID, Quantity: quantity},
		},
	})
	require.NoError(t, err)
	return req, items
}

func TestRequisition_FullLifecycle(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	w := setupReqWorld(t, ctx, "req-lifecycle", 100)

	req, items := w.open(t, ctx, 40)
	assert.Equal(t, repository.StatusAwaitingReview, req.Status)
	require.Len(t, items, 1)

	// approve less than requested
	approved, err := w.svc.Approve(ctx, req.ID, w.warehouseOp.ID, []service.ItemApproval{
		{ItemID: items[0].ID, Quantity: 30},
	})
	require.NoError(t, err)
	assert.Equal(t, repository.StatusInPicking, approved.Status)

	// approval does not move stock
	available, err := w.entryRepo.AvailableForDrug(ctx, w.db, w.central.ID, w.drug.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, available)

	dispatched, err := w.svc.Dispatch(ctx, req.ID, w.warehouseOp.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusDispatched, dispatched.Status)

	// dispatch drains the warehouse by the approved quantity
	available, err = w.entryRepo.AvailableForDrug(ctx, w.db, w.central.ID, w.drug.ID)
	require.NoError(t, err)
	assert.Equal(t, 70, available)

	received, err := w.svc.Receive(ctx, req.ID, w.clinic.ID, w.clinicUser.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusReceivedFull, received.Status)

	// receipt confirmation does not credit the clinic's stock
	clinicEntries, err := w.entryRepo.ListByLocation(ctx, w.clinic.ID, false)
	require.NoError(t, err)
	assert.Empty(t, clinicEntries)
}

func TestRequisition_CreateRequiresItems(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	w := setupReqWorld(t, ctx, "req-no-items", 0)

	_, _, err := w.svc.Create(ctx, service.CreateInput{
		RequestingLocationID: w.clinic.ID,
		RequestingUserID:     w.clinicUser.ID,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestRequisition_ApproveFailsOnShortage(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	w := setupReqWorld(t, ctx, "req-shortage", 10)

	req, items := w.open(t, ctx, 50)

	_, err := w.svc.Approve(ctx, req.ID, w.warehouseOp.ID, []service.ItemApproval{
		{ItemID: items[0].ID, Quantity: 50},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	require.NotNil(t, appErr.Shortage)
	assert.Equal(t, items[0].ID, appErr.Shortage.ItemID)
	assert.Equal(t, 10, appErr.Shortage.Available)
	assert.Equal(t, 50, appErr.Shortage.Requested)
	assert.Contains(t, appErr.Shortage.DrugName, w.drug.GroupName)

	// the failed approval left the requisition untouched
	detail, err := w.svc.Get(ctx, req.ID, w.clinic.ID, false)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusAwaitingReview, detail.Status)
}

func TestRequisition_DispatchRequiresPicking(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	w := setupReqWorld(t, ctx, "req-dispatch-state", 100)

	req, _ := w.open(t, ctx, 10)

	_, err := w.svc.Dispatch(ctx, req.ID, w.warehouseOp.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidState))
}

func TestRequisition_DispatchDrainsOldestExpiryFirst(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	w := setupReqWorld(t, ctx, "req-fifo", 0)

	// two lots, the later-received one expires first
	lotLate, err := w.stockSvc.ReceiveLot(ctx, stockservice.ReceiveLotInput{
		LocationID:      w.central.ID,
		UserID:          w.warehouseOp.ID,
		DrugID:          w.drug.ID,
		SupplierID:      w.supplier.ID,
		LotCode:         "LOT-LATE",
		ManufactureDate: time.Now().AddDate(-1, 0, 0),
		ExpiryDate:      time.Now().AddDate(2, 0, 0),
		Quantity:        50,
	})
	require.NoError(t, err)
	lotEarly, err := w.stockSvc.ReceiveLot(ctx, stockservice.ReceiveLotInput{
		LocationID:      w.central.ID,
		UserID:          w.warehouseOp.ID,
		DrugID:          w.drug.ID,
		SupplierID:      w.supplier.ID,
		LotCode:         "LOT-EARLY",
		ManufactureDate: time.Now().AddDate(-1, 0, 0),
		ExpiryDate:      time.Now().AddDate(0, 3, 0),
		Quantity:        20,
	})
	require.NoError(t, err)

	req, items := w.open(t, ctx, 30)
	_, err = w.svc.Approve(ctx, req.ID, w.warehouseOp.ID, []service.ItemApproval{
		{ItemID: items[0].ID, Quantity: 30},
	})
	require.NoError(t, err)

	_, err = w.svc.Dispatch(ctx, req.ID, w.warehouseOp.ID)
	require.NoError(t, err)

	// earliest expiry fully drained, remainder from the later lot
	earlySum, err := w.movementRepo.SumByLocationAndLot(ctx, w.central.ID, lotEarly.Lot.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, earlySum)

	lateSum, err := w.movementRepo.SumByLocationAndLot(ctx, w.central.ID, lotLate.Lot.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, lateSum)

	// outbound movements reference the requisition
	movements, err := w.movementRepo.ListByLocationAndLot(ctx, w.central.ID, lotEarly.Lot.ID)
	require.NoError(t, err)
	var outbound int
	for _, m := range movements {
		if m.Type == stockrepo.MovementTransferOut {
			outbound++
			require.NotNil(t, m.ReferenceID)
			assert.Equal(t, req.ID, *m.ReferenceID)
		}
	}
	assert.Equal(t, 1, outbound)
}

func TestRequisition_ReceiveGuards(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	w := setupReqWorld(t, ctx, "req-receive-guards", 100)

	req, items := w.open(t, ctx, 10)

	// not yet dispatched
	_, err := w.svc.Receive(ctx, req.ID, w.clinic.ID, w.clinicUser.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidState))

	_, err = w.svc.Approve(ctx, req.ID, w.warehouseOp.ID, []service.ItemApproval{
		{ItemID: items[0].ID, Quantity: 10},
	})
	require.NoError(t, err)
	_, err = w.svc.Dispatch(ctx, req.ID, w.warehouseOp.ID)
	require.NoError(t, err)

	// another location cannot confirm
	_, err = w.svc.Receive(ctx, req.ID, w.central.ID, w.warehouseOp.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	_, err = w.svc.Receive(ctx, req.ID, w.clinic.ID, w.clinicUser.ID)
	require.NoError(t, err)
}

func TestRequisition_RefuseIsTerminal(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	w := setupReqWorld(t, ctx, "req-refuse", 100)

	req, items := w.open(t, ctx, 10)

	// reason is mandatory
	_, err := w.svc.Refuse(ctx, req.ID, w.warehouseOp.ID, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	refused, err := w.svc.Refuse(ctx, req.ID, w.warehouseOp.ID, "out of program scope")
	require.NoError(t, err)
	assert.Equal(t, repository.StatusRefused, refused.Status)
	require.NotNil(t, refused.RefusalReason)
	assert.Equal(t, "out of program scope", *refused.RefusalReason)

	// no transitions out of REFUSED
	_, err = w.svc.Approve(ctx, req.ID, w.warehouseOp.ID, []service.ItemApproval{
		{ItemID: items[0].ID, Quantity: 10},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidState))

	_, err = w.svc.Refuse(ctx, req.ID, w.warehouseOp.ID, "again")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidState))
}

func TestRequisition_ListIsActorScoped(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	w := setupReqWorld(t, ctx, "req-list-scope", 100)

	otherClinic := suite.Fixtures.Location()
	testutil.SeedLocation(t, ctx, w.db, otherClinic)
	otherUser := suite.Fixtures.User(otherClinic.ID)
	testutil.SeedUser(t, ctx, w.db, otherUser)

	w.open(t, ctx, 5)
	_, _, err := w.svc.Create(ctx, service.CreateInput{
		RequestingLocationID: otherClinic.ID,
		RequestingUserID:     otherUser.ID,
		Items: []service.CreateItemInput{
			{DrugID: w.drug.ID, Quantity: 3},
		},
	})
	require.NoError(t, err)

	own, err := w.svc.List(ctx, w.clinic.ID, false)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, w.clinic.ID, own[0].RequestingLocationID)

	all, err := w.svc.List(ctx, w.central.ID, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// detail access follows the same rule
	_, err = w.svc.Get(ctx, own[0].ID, otherClinic.ID, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}

func TestRequisition_ReportAndLogistics(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	w := setupReqWorld(t, ctx, "req-report", 100)

	req, items := w.open(t, ctx, 10)
	_, err := w.svc.Approve(ctx, req.ID, w.warehouseOp.ID, []service.ItemApproval{
		{ItemID: items[0].ID, Quantity: 10},
	})
	require.NoError(t, err)
	_, err = w.svc.Dispatch(ctx, req.ID, w.warehouseOp.ID)
	require.NoError(t, err)

	// an awaiting requisition must not appear in the report
	w.open(t, ctx, 3)

	report, err := w.svc.Report(ctx, time.Now().AddDate(0, 0, -1), time.Now().AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, req.ID, report[0].ID)
	assert.Equal(t, repository.StatusDispatched, report[0].Status)
	assert.Equal(t, 1, report[0].ItemCount)

	// inverted range is rejected
	_, err = w.svc.Report(ctx, time.Now(), time.Now().AddDate(0, 0, -2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	feed, err := w.svc.RecentLogistics(ctx, 10)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, service.LogisticsKindRequisition, feed[0].Kind)
	assert.Equal(t, w.clinic.Name, feed[0].DestinationName)
	assert.Equal(t, 1, feed[0].ItemCount)
}

func TestRecentLogistics_MergesTransfersAndRequisitions(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	w := setupReqWorld(t, ctx, "req-feed-merge", 100)

	// a direct transfer
	lotResult, err := w.stockSvc.ReceiveLot(ctx, stockservice.ReceiveLotInput{
		LocationID:      w.central.ID,
		UserID:          w.warehouseOp.ID,
		DrugID:          w.drug.ID,
		SupplierID:      w.supplier.ID,
		LotCode:         "LOT-DIRECT",
		ManufactureDate: time.Now().AddDate(-1, 0, 0),
		ExpiryDate:      time.Now().AddDate(1, 0, 0),
		Quantity:        10,
	})
	require.NoError(t, err)
	_, err = w.stockSvc.Transfer(ctx, stockservice.TransferInput{
		OriginID:      w.central.ID,
		DestinationID: w.clinic.ID,
		SenderUserID:  w.warehouseOp.ID,
		Items: []stockservice.TransferItemInput{
			{LotID: lotResult.Lot.ID, Quantity: 4},
		},
	})
	require.NoError(t, err)

	// a fulfilled requisition
	req, items := w.open(t, ctx, 5)
	_, err = w.svc.Approve(ctx, req.ID, w.warehouseOp.ID, []service.ItemApproval{
		{ItemID: items[0].ID, Quantity: 5},
	})
	require.NoError(t, err)
	_, err = w.svc.Dispatch(ctx, req.ID, w.warehouseOp.ID)
	require.NoError(t, err)

	feed, err := w.svc.RecentLogistics(ctx, 10)
	require.NoError(t, err)
	require.Len(t, feed, 2)

	kinds := map[string]bool{}
	for _, e := range feed {
		kinds[e.Kind] = true
	}
	assert.True(t, kinds[service.LogisticsKindTransfer])
	assert.True(t, kinds[service.LogisticsKindRequisition])

	// newest first
	assert.False(t, feed[1].EventTime.After(feed[0].EventTime))
}
