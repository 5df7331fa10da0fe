package store_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kubev2v/transcription-api/internal/config"
	st "github.com/kubev2v/transcription-api/internal/store"
	"github.com/kubev2v/transcription-api/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func newUpload(filename string) model.Transcription {
	return model.Transcription{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Filename:  &filename,
	}
}

func ptr[T any](v T) *T {
	return &v
}

func newSqliteStore() st.Store {
	cfg := config.NewDefault()
	cfg.Store.Type = config.StoreTypeSqlite
	// every test gets its own database
	cfg.Store.Name = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())

	s, err := st.New(cfg)
	Expect(err).To(BeNil())
	Expect(s.InitialMigration(context.TODO())).To(BeNil())
	return s
}

func newMemoryStore() st.Store {
	cfg := config.NewDefault()
	cfg.Store.Type = config.StoreTypeMemory

	s, err := st.New(cfg)
	Expect(err).To(BeNil())
	return s
}

var _ = Describe("transcription store", func() {
	for _, backend := range []struct {
		name     string
		newStore func() st.Store
	}{
		{name: "memory", newStore: newMemoryStore},
		{name: "sqlite", newStore: newSqliteStore},
	} {
		Context(backend.name, func() {
			var s st.Store

			BeforeEach(func() {
				s = backend.newStore()
			})

			AfterEach(func() {
				s.Close()
			})

			Context("create", func() {
				It("creates a processing transcription", func() {
					t := newUpload("talk.mp3")
					t.Status = model.TranscriptionStatusCompleted

					created, err := s.Transcription().Create(context.TODO(), t)
					Expect(err).To(BeNil())
					Expect(created.ID).To(Equal(t.ID))
					Expect(created.Status).To(Equal(model.TranscriptionStatusProcessing))
					Expect(*created.Filename).To(Equal("talk.mp3"))
					Expect(created.URL).To(BeNil())
					Expect(created.Text).To(BeNil())
					Expect(created.Error).To(BeNil())
				})

				It("refuses a duplicated id", func() {
					t := newUpload("talk.mp3")
					_, err := s.Transcription().Create(context.TODO(), t)
					Expect(err).To(BeNil())

					_, err = s.Transcription().Create(context.TODO(), t)
					Expect(err).To(MatchError(st.ErrDuplicateKey))
				})
			})

			Context("get", func() {
				It("returns the transcription", func() {
					t := newUpload("talk.mp3")
					_, err := s.Transcription().Create(context.TODO(), t)
					Expect(err).To(BeNil())

					got, err := s.Transcription().Get(context.TODO(), t.ID)
					Expect(err).To(BeNil())
					Expect(got.ID).To(Equal(t.ID))
					Expect(got.CreatedAt.Unix()).To(Equal(t.CreatedAt.Unix()))
				})

				It("fails when the transcription does not exist", func() {
					_, err := s.Transcription().Get(context.TODO(), uuid.NewString())
					Expect(err).To(MatchError(st.ErrRecordNotFound))
				})

				It("returns copies", func() {
					t := newUpload("talk.mp3")
					_, err := s.Transcription().Create(context.TODO(), t)
					Expect(err).To(BeNil())

					got, err := s.Transcription().Get(context.TODO(), t.ID)
					Expect(err).To(BeNil())
					*got.Filename = "changed.mp3"

					again, err := s.Transcription().Get(context.TODO(), t.ID)
					Expect(err).To(BeNil())
					Expect(*again.Filename).To(Equal("talk.mp3"))
				})
			})

			Context("update", func() {
				var id string

				BeforeEach(func() {
					t := newUpload("talk.mp3")
					id = t.ID
					_, err := s.Transcription().Create(context.TODO(), t)
					Expect(err).To(BeNil())
				})

				It("completes a transcription", func() {
					segments := []model.Segment{{ID: 0, Start: 0, End: 1.5, Text: "hello"}}
					updated, err := s.Transcription().Update(context.TODO(), id, model.CompletedPatch("hello", segments, "en", ptr(1.5)))
					Expect(err).To(BeNil())
					Expect(updated.Status).To(Equal(model.TranscriptionStatusCompleted))

					got, err := s.Transcription().Get(context.TODO(), id)
					Expect(err).To(BeNil())
					Expect(got.Status).To(Equal(model.TranscriptionStatusCompleted))
					Expect(*got.Text).To(Equal("hello"))
					Expect(*got.Language).To(Equal("en"))
					Expect(*got.Duration).To(Equal(1.5))
					Expect(got.Segments).To(HaveLen(1))
					Expect(got.Segments[0].Text).To(Equal("hello"))
					Expect(got.Error).To(BeNil())
					Expect(*got.Filename).To(Equal("talk.mp3"))
				})

				It("completes a transcription without duration or segments", func() {
					_, err := s.Transcription().Update(context.TODO(), id, model.CompletedPatch("", nil, "en", nil))
					Expect(err).To(BeNil())

					got, err := s.Transcription().Get(context.TODO(), id)
					Expect(err).To(BeNil())
					Expect(got.Duration).To(BeNil())
					Expect(got.Segments).ToNot(BeNil())
					Expect(got.Segments).To(BeEmpty())
				})

				It("fails a transcription", func() {
					_, err := s.Transcription().Update(context.TODO(), id, model.FailedPatch("boom"))
					Expect(err).To(BeNil())

					got, err := s.Transcription().Get(context.TODO(), id)
					Expect(err).To(BeNil())
					Expect(got.Status).To(Equal(model.TranscriptionStatusError))
					Expect(*got.Error).To(Equal("boom"))
					Expect(got.Text).To(BeNil())
					Expect(got.Segments).To(BeNil())
				})

				It("refuses to leave a terminal state", func() {
					_, err := s.Transcription().Update(context.TODO(), id, model.FailedPatch("boom"))
					Expect(err).To(BeNil())

					_, err = s.Transcription().Update(context.TODO(), id, model.CompletedPatch("hello", nil, "en", nil))
					Expect(err).To(MatchError(st.ErrInvalidTransition))

					got, err := s.Transcription().Get(context.TODO(), id)
					Expect(err).To(BeNil())
					Expect(got.Status).To(Equal(model.TranscriptionStatusError))
				})

				It("refuses a completed patch without text", func() {
					status := model.TranscriptionStatusCompleted
					_, err := s.Transcription().Update(context.TODO(), id, model.TranscriptionPatch{Status: &status})
					Expect(err).To(MatchError(st.ErrInvalidTransition))
				})

				It("fails when the transcription does not exist", func() {
					_, err := s.Transcription().Update(context.TODO(), uuid.NewString(), model.FailedPatch("boom"))
					Expect(err).To(MatchError(st.ErrRecordNotFound))
				})

				It("applies exactly one of concurrent terminal updates", func() {
					var (
						wg        sync.WaitGroup
						mu        sync.Mutex
						succeeded int
					)
					for i := 0; i < 8; i++ {
						wg.Add(1)
						go func(i int) {
							defer GinkgoRecover()
							defer wg.Done()
							patch := model.FailedPatch(fmt.Sprintf("error %d", i))
							if i%2 == 0 {
								patch = model.CompletedPatch(fmt.Sprintf("text %d", i), nil, "en", nil)
							}
							if _, err := s.Transcription().Update(context.TODO(), id, patch); err == nil {
								mu.Lock()
								succeeded++
								mu.Unlock()
							} else {
								Expect(err).To(MatchError(st.ErrInvalidTransition))
							}
						}(i)
					}
					wg.Wait()
					Expect(succeeded).To(Equal(1))
				})
			})

			Context("delete", func() {
				It("deletes the transcription", func() {
					t := newUpload("talk.mp3")
					_, err := s.Transcription().Create(context.TODO(), t)
					Expect(err).To(BeNil())

					Expect(s.Transcription().Delete(context.TODO(), t.ID)).To(BeNil())

					_, err = s.Transcription().Get(context.TODO(), t.ID)
					Expect(err).To(MatchError(st.ErrRecordNotFound))

					list, err := s.Transcription().List(context.TODO(), st.NewTranscriptionQueryFilter())
					Expect(err).To(BeNil())
					Expect(list).To(BeEmpty())
				})

				It("fails when the transcription does not exist", func() {
					err := s.Transcription().Delete(context.TODO(), uuid.NewString())
					Expect(err).To(MatchError(st.ErrRecordNotFound))
				})

				It("fails on the second delete", func() {
					t := newUpload("talk.mp3")
					_, err := s.Transcription().Create(context.TODO(), t)
					Expect(err).To(BeNil())

					Expect(s.Transcription().Delete(context.TODO(), t.ID)).To(BeNil())
					Expect(s.Transcription().Delete(context.TODO(), t.ID)).To(MatchError(st.ErrRecordNotFound))
				})
			})

			Context("list", func() {
				It("returns an empty list", func() {
					list, err := s.Transcription().List(context.TODO(), st.NewTranscriptionQueryFilter())
					Expect(err).To(BeNil())
					Expect(list).To(BeEmpty())
				})

				It("lists in creation order", func() {
					now := time.Now().UTC()
					ids := []string{}
					for i := 0; i < 3; i++ {
						t := newUpload(fmt.Sprintf("file-%d.mp3", i))
						t.CreatedAt = now.Add(time.Duration(i) * time.Second)
						ids = append(ids, t.ID)
						_, err := s.Transcription().Create(context.TODO(), t)
						Expect(err).To(BeNil())
					}

					list, err := s.Transcription().List(context.TODO(), st.NewTranscriptionQueryFilter())
					Expect(err).To(BeNil())
					Expect(list).To(HaveLen(3))
					for i, t := range list {
						Expect(t.ID).To(Equal(ids[i]))
					}
				})

				It("filters by status", func() {
					first := newUpload("a.mp3")
					second := newUpload("b.mp3")
					for _, t := range []model.Transcription{first, second} {
						_, err := s.Transcription().Create(context.TODO(), t)
						Expect(err).To(BeNil())
					}
					_, err := s.Transcription().Update(context.TODO(), second.ID, model.FailedPatch("boom"))
					Expect(err).To(BeNil())

					list, err := s.Transcription().List(context.TODO(), st.NewTranscriptionQueryFilter().ByStatus(model.TranscriptionStatusProcessing))
					Expect(err).To(BeNil())
					Expect(list).To(HaveLen(1))
					Expect(list[0].ID).To(Equal(first.ID))

					counts, err := s.Transcription().Count(context.TODO())
					Expect(err).To(BeNil())
					Expect(counts[model.TranscriptionStatusProcessing]).To(Equal(1))
					Expect(counts[model.TranscriptionStatusError]).To(Equal(1))
					Expect(counts[model.TranscriptionStatusCompleted]).To(Equal(0))
				})
			})
		})
	}
})
