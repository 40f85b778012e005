package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/talkincode/productsapi/internal/domain"
	"github.com/talkincode/productsapi/internal/events"
	"github.com/talkincode/productsapi/internal/imagestore"
	"github.com/talkincode/productsapi/internal/repository"
)

type recordingPublisher struct {
	events []events.ProductEvent
}

func (r *recordingPublisher) Publish(evt events.ProductEvent) {
	r.events = append(r.events, evt)
}

func setup(t *testing.T) (*ProductService, *imagestore.Store, *recordingPublisher) {
	t.Helper()
	store, err := imagestore.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	pub := &recordingPublisher{}
	return NewProductService(repository.NewMemoryProductRepository(), store, pub), store, pub
}

func input(name string, image *ImageUpload) ProductInput {
	return ProductInput{
		Name:        name,
		Price:       decimal.RequireFromString("7.5"),
		Description: "desc",
		Category:    "Category 1",
		Image:       image,
	}
}

func upload(name, content string) *ImageUpload {
	return &ImageUpload{Filename: name, Content: strings.NewReader(content)}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestCreateProduct_WithoutImage(t *testing.T) {
	svc, _, pub := setup(t)
	p, err := svc.CreateProduct(context.Background(), input("a", nil))
	if err != nil {
		t.Fatalf("CreateProduct() error = %v", err)
	}
	if p.ID != 1 {
		t.Errorf("id = %d, want 1", p.ID)
	}
	if p.ImagePath != nil {
		t.Errorf("image path = %s, want nil", *p.ImagePath)
	}
	if len(pub.events) != 1 || pub.events[0].Type != events.ProductCreated {
		t.Errorf("events = %+v", pub.events)
	}
}

func TestCreateProduct_WithImage(t *testing.T) {
	svc, store, _ := setup(t)
	p, err := svc.CreateProduct(context.Background(), input("a", upload("cat.jpg", "meow")))
	if err != nil {
		t.Fatalf("CreateProduct() error = %v", err)
	}
	if !p.HasImage() {
		t.Fatal("expected image path")
	}
	if !strings.HasPrefix(*p.ImagePath, store.Dir()) || !strings.HasSuffix(*p.ImagePath, ".jpg") {
		t.Errorf("image path = %s", *p.ImagePath)
	}
	if !fileExists(*p.ImagePath) {
		t.Error("image file missing")
	}
}

func TestUpdateProduct_ReplacesImage(t *testing.T) {
	svc, _, pub := setup(t)
	ctx := context.Background()
	created, _ := svc.CreateProduct(ctx, input("a", upload("old.png", "old")))
	oldPath := *created.ImagePath

	updated, err := svc.UpdateProduct(ctx, created.ID, input("b", upload("new.png", "new")))
	if err != nil {
		t.Fatalf("UpdateProduct() error = %v", err)
	}
	if updated.Name != "b" {
		t.Errorf("name = %s, want b", updated.Name)
	}
	if fileExists(oldPath) {
		t.Error("old image not deleted")
	}
	if !fileExists(*updated.ImagePath) || *updated.ImagePath == oldPath {
		t.Error("new image not stored")
	}
	if got := pub.events[len(pub.events)-1].Type; got != events.ProductUpdated {
		t.Errorf("last event = %s", got)
	}
}

func TestUpdateProduct_KeepsImageWhenNoneUploaded(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	created, _ := svc.CreateProduct(ctx, input("a", upload("keep.png", "x")))

	updated, err := svc.UpdateProduct(ctx, created.ID, input("b", nil))
	if err != nil {
		t.Fatal(err)
	}
	if updated.ImagePath == nil || *updated.ImagePath != *created.ImagePath {
		t.Error("image path changed without upload")
	}
	if !fileExists(*created.ImagePath) {
		t.Error("image removed without upload")
	}
}

func TestUpdateProduct_NotFound(t *testing.T) {
	svc, store, _ := setup(t)
	_, err := svc.UpdateProduct(context.Background(), 9999, input("x", upload("a.png", "x")))
	if !errors.Is(err, repository.ErrProductNotFound) {
		t.Errorf("error = %v, want ErrProductNotFound", err)
	}
	entries, _ := os.ReadDir(store.Dir())
	if len(entries) != 0 {
		t.Error("image stored for missing product")
	}
}

func TestDeleteProduct_RemovesImage(t *testing.T) {
	svc, _, pub := setup(t)
	ctx := context.Background()
	created, _ := svc.CreateProduct(ctx, input("a", upload("a.png", "x")))

	if err := svc.DeleteProduct(ctx, created.ID); err != nil {
		t.Fatalf("DeleteProduct() error = %v", err)
	}
	if fileExists(*created.ImagePath) {
		t.Error("image file still on disk")
	}
	list, _ := svc.ListProducts(ctx)
	if len(list) != 0 {
		t.Errorf("list len = %d, want 0", len(list))
	}
	if got := pub.events[len(pub.events)-1].Type; got != events.ProductDeleted {
		t.Errorf("last event = %s", got)
	}
	if err := svc.DeleteProduct(ctx, created.ID); !errors.Is(err, repository.ErrProductNotFound) {
		t.Errorf("second delete error = %v", err)
	}
}

type failingRepo struct {
	repository.ProductRepository
}

func (failingRepo) Add(context.Context, *domain.Product) error {
	return errors.New("disk full")
}

func TestCreateProduct_RepoFailureDiscardsImage(t *testing.T) {
	store, _ := imagestore.New(t.TempDir())
	svc := NewProductService(failingRepo{repository.NewMemoryProductRepository()}, store, nil)

	if _, err := svc.CreateProduct(context.Background(), input("a", upload("a.png", "x"))); err == nil {
		t.Fatal("expected error")
	}
	entries, _ := os.ReadDir(store.Dir())
	if len(entries) != 0 {
		t.Errorf("image left behind after failed create: %d files", len(entries))
	}
}

func TestReferencedImages(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	withImage, _ := svc.CreateProduct(ctx, input("a", upload("a.png", "x")))
	_, _ = svc.CreateProduct(ctx, input("b", nil))

	refs, err := svc.ReferencedImages(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 {
		t.Fatalf("refs = %v", refs)
	}
	if _, ok := refs[*withImage.ImagePath]; !ok {
		t.Error("image path missing from references")
	}
}
