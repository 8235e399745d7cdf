package requisition

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/dagelec/dagelec-erp/internal/export"
	"github.com/dagelec/dagelec-erp/internal/rbac"
)

type memoryObjects struct {
	putErr  error
	objects map[string]string
}

func (m *memoryObjects) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	if m.putErr != nil {
		return m.putErr
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if m.objects == nil {
		m.objects = map[string]string{}
	}
	m.objects[key] = string(raw)
	return nil
}

func (m *memoryObjects) PresignGet(_ context.Context, key string) (string, error) {
	return "https://files.local/" + key + "?sig=1", nil
}

func validHeader() Header {
	return Header{City: " Cali ", Process: "Compras", DeliveryPlace: "Bodega 2", CostCenter: "CC-1", Checker1: "Ana", Approver: "Luis"}
}

func validItem() ItemInput {
	return ItemInput{IngredientID: 4, GrossCost: d("12000"), Quantity: d("2"), RequiredDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)}
}

func TestServiceCreateWithAttachment(t *testing.T) {
	gw := newMemoryGateway()
	objects := &memoryObjects{}
	pub := &recordingPublisher{}
	svc := NewService(gw, nil, objects, pub, nil, nil)

	res, err := svc.Create(context.Background(), 5, validHeader(), &Upload{Name: `C:\docs\cotizacion.pdf`, ContentType: "application/pdf", Size: 3, Body: strings.NewReader("pdf")})
	require.NoError(t, err)
	require.Empty(t, res.Warnings)
	require.Equal(t, "REQUISITION#001", res.Requisition.PK)
	require.Equal(t, "Cali", res.Requisition.City)
	require.Equal(t, StatusSaved, res.Requisition.Status)
	require.Equal(t, "requisitions/REQUISITION-001/cotizacion.pdf", res.Requisition.Attachment)
	require.Equal(t, "pdf", objects.objects[res.Requisition.Attachment])
	require.Len(t, pub.snapshots, 1)

	url, err := svc.AttachmentURL(context.Background(), res.Requisition.PK)
	require.NoError(t, err)
	require.Contains(t, url, "cotizacion.pdf")
}

func TestServiceCreateUploadFailureIsWarning(t *testing.T) {
	gw := newMemoryGateway()
	svc := NewService(gw, nil, &memoryObjects{putErr: errors.New("bucket offline")}, nil, nil, nil)

	res, err := svc.Create(context.Background(), 5, validHeader(), &Upload{Name: "a.pdf", Body: strings.NewReader("x")})
	require.NoError(t, err)
	require.Equal(t, []string{WarnUploadFailed}, res.Warnings)
	require.Empty(t, res.Requisition.Attachment)

	stored, err := gw.Get(context.Background(), res.Requisition.PK)
	require.NoError(t, err)
	require.Equal(t, StatusSaved, stored.Status)
}

func TestServiceCreateValidation(t *testing.T) {
	svc := NewService(newMemoryGateway(), nil, nil, nil, nil, nil)
	h := validHeader()
	h.City = "   "
	_, err := svc.Create(context.Background(), 1, h, nil)
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
}

func TestServiceReadOnlyAfterSend(t *testing.T) {
	for _, status := range AllStatuses {
		if status == StatusSaved {
			continue
		}
		gw := seeded(status)
		gw.put(Requisition{PK: "REQUISITION#004", Status: status, Items: []Item{{PK: "REQUISITION#004", SK: "ITEM#1"}}})
		svc := NewService(gw, nil, &memoryObjects{}, nil, nil, nil)
		ctx := context.Background()

		_, err := svc.Update(ctx, 1, "REQUISITION#004", validHeader())
		require.ErrorIs(t, err, ErrReadOnly, status)
		_, err = svc.AddItem(ctx, "REQUISITION#004", validItem())
		require.ErrorIs(t, err, ErrReadOnly, status)
		_, err = svc.UpdateItem(ctx, "REQUISITION#004", "ITEM#1", validItem())
		require.ErrorIs(t, err, ErrReadOnly, status)
		require.ErrorIs(t, svc.DeleteItem(ctx, "REQUISITION#004", "ITEM#1"), ErrReadOnly, status)
		_, err = svc.Attach(ctx, "REQUISITION#004", &Upload{Name: "a.pdf", Body: strings.NewReader("x")})
		require.ErrorIs(t, err, ErrReadOnly, status)

		stored, _ := gw.Get(ctx, "REQUISITION#004")
		require.Len(t, stored.Items, 1)
	}
}

func TestServiceItemLifecycle(t *testing.T) {
	gw := seeded(StatusSaved)
	pub := &recordingPublisher{}
	svc := NewService(gw, nil, nil, pub, nil, nil)
	ctx := context.Background()

	it, err := svc.AddItem(ctx, "REQUISITION#004", validItem())
	require.NoError(t, err)
	require.True(t, it.Total.Equal(d("24000")))

	in := validItem()
	in.Quantity = d("3")
	it, err = svc.UpdateItem(ctx, "REQUISITION#004", it.SK, in)
	require.NoError(t, err)
	require.True(t, it.Total.Equal(d("36000")))

	require.NoError(t, svc.DeleteItem(ctx, "REQUISITION#004", it.SK))
	require.Len(t, pub.snapshots, 3)
	require.Empty(t, pub.snapshots[2].Items)
}

func TestServiceItemRules(t *testing.T) {
	svc := NewService(seeded(StatusSaved), nil, nil, nil, nil, nil)
	in := validItem()
	in.Quantity = d("0")
	_, err := svc.AddItem(context.Background(), "REQUISITION#004", in)
	require.ErrorIs(t, err, ErrValidation)

	in = validItem()
	in.GrossCost = d("-1")
	_, err = svc.AddItem(context.Background(), "REQUISITION#004", in)
	require.ErrorIs(t, err, ErrValidation)
}

func TestServiceListDecoratesRows(t *testing.T) {
	gw := seeded(StatusInReview1)
	gw.put(Requisition{PK: "REQUISITION#005", Status: StatusSaved})
	svc := NewService(gw, nil, nil, nil, nil, nil)
	ev := grants(rbac.ActionApprove, rbac.ActionPrint, rbac.ActionUpdate)

	rows, err := svc.List(context.Background(), ev, Filter{PendingApproval: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "REQUISITION#004", rows[0].PK)
	require.Equal(t, []rbac.Action{rbac.ActionApprove, rbac.ActionPrint}, rows[0].Actions)
	require.False(t, rows[0].Editable)
}

func TestServiceExport(t *testing.T) {
	gw := seeded(StatusSaved)
	svc := NewService(gw, nil, nil, nil, nil, nil)
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	art, err := svc.Export(context.Background(), Filter{Limit: 1, Offset: 10}, export.FormatCSV, now)
	require.NoError(t, err)
	require.Contains(t, string(art.Body), "REQUISITION#004")
}
