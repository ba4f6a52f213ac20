//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarnet/paper-network-service/internal/domain"
	"github.com/scholarnet/paper-network-service/internal/repository"
)

func TestPgPaperRepository_Integration(t *testing.T) {
	cleanTable(t, "papers", "authors", "collections")
	repo := repository.NewPgPaperRepository(testDB)
	ctx := context.Background()

	t.Run("Create and GetByID roundtrip", func(t *testing.T) {
		paper := &domain.Paper{
			Title:           "Attention Is All You Need",
			Abstract:        "The dominant sequence transduction models are based on recurrent networks.",
			PublicationDate: testDate(2017, time.June, 12),
			PublicationYear: 2017,
			ArXivID:         "1706.03762",
			DOI:             "10.48550/arxiv.1706.03762",
			Journal:         "NeurIPS",
			Keywords:        []string{"attention", "transformers"},
			CitationCount:   90000,
			PDFURL:          "https://arxiv.org/pdf/1706.03762",
			Source:          domain.SourceTypeArXiv,
			RawMetadata:     map[string]interface{}{"primary_category": "cs.CL"},
		}

		created, err := repo.Create(ctx, paper)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, created.ID)
		assert.False(t, created.CreatedAt.IsZero())
		assert.False(t, created.UpdatedAt.IsZero())

		got, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "Attention Is All You Need", got.Title)
		assert.Equal(t, "1706.03762", got.ArXivID)
		assert.Equal(t, "", got.PubMedID)
		assert.Equal(t, "10.48550/arxiv.1706.03762", got.DOI)
		assert.Equal(t, "NeurIPS", got.Journal)
		assert.Equal(t, 2017, got.PublicationYear)
		assert.Equal(t, "2017-06-12", got.PublicationDate.Format("2006-01-02"))
		assert.Equal(t, []string{"attention", "transformers"}, got.Keywords)
		assert.Equal(t, 90000, got.CitationCount)
		assert.Equal(t, domain.SourceTypeArXiv, got.Source)
		assert.Equal(t, "cs.CL", got.RawMetadata["primary_category"])
		assert.Empty(t, got.Authors, "no authors linked yet")
	})

	t.Run("Create without publication date returns invalid input", func(t *testing.T) {
		_, err := repo.Create(ctx, &domain.Paper{Title: "No Date", Source: domain.SourceTypeArXiv})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("Create duplicate arxiv id returns already exists", func(t *testing.T) {
		first := &domain.Paper{
			Title:           "Colliding Identifier Paper",
			PublicationDate: testDate(2023, time.January, 10),
			ArXivID:         "2301.00001",
			Source:          domain.SourceTypeArXiv,
		}
		_, err := repo.Create(ctx, first)
		require.NoError(t, err)

		second := &domain.Paper{
			Title:           "Colliding Identifier Paper (Mirror)",
			PublicationDate: testDate(2023, time.February, 1),
			ArXivID:         "2301.00001",
			Source:          domain.SourceTypeSemanticScholar,
		}
		_, err = repo.Create(ctx, second)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	})

	t.Run("Create duplicate title and date returns already exists", func(t *testing.T) {
		paper := &domain.Paper{
			Title:           "Untracked Workshop Paper",
			PublicationDate: testDate(2022, time.March, 5),
			Source:          domain.SourceTypeSemanticScholar,
		}
		_, err := repo.Create(ctx, paper)
		require.NoError(t, err)

		// No external identifiers, so (title, publication_date) is the guard.
		again := &domain.Paper{
			Title:           "Untracked Workshop Paper",
			PublicationDate: testDate(2022, time.March, 5),
			Source:          domain.SourceTypePubMed,
		}
		_, err = repo.Create(ctx, again)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	})

	t.Run("GetByID nonexistent returns not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.New())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("FindByIdentifier matches each identifier type", func(t *testing.T) {
		paper := &domain.Paper{
			Title:           "Identifier Cascade Paper",
			PublicationDate: testDate(2024, time.May, 20),
			ArXivID:         "2405.11111",
			PubMedID:        "38000001",
			DOI:             "10.1000/cascade.2024",
			Source:          domain.SourceTypeArXiv,
		}
		created, err := repo.Create(ctx, paper)
		require.NoError(t, err)

		for _, tc := range []struct {
			idType domain.IdentifierType
			value  string
		}{
			{domain.IdentifierTypeArXivID, "2405.11111"},
			{domain.IdentifierTypePubMedID, "38000001"},
			{domain.IdentifierTypeDOI, "10.1000/cascade.2024"},
		} {
			got, err := repo.FindByIdentifier(ctx, tc.idType, tc.value)
			require.NoError(t, err, "find by %s", tc.idType)
			assert.Equal(t, created.ID, got.ID)
		}
	})

	t.Run("FindByIdentifier nonexistent returns not found", func(t *testing.T) {
		_, err := repo.FindByIdentifier(ctx, domain.IdentifierTypeDOI, "10.9999/missing")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("FindByIdentifier unknown type returns invalid input", func(t *testing.T) {
		_, err := repo.FindByIdentifier(ctx, domain.IdentifierType("isbn"), "978-0")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("FindByTitleAndDate is case-insensitive", func(t *testing.T) {
		paper := &domain.Paper{
			Title:           "Graph Neural Networks in Practice",
			PublicationDate: testDate(2021, time.September, 9),
			Source:          domain.SourceTypeSemanticScholar,
		}
		created, err := repo.Create(ctx, paper)
		require.NoError(t, err)

		got, err := repo.FindByTitleAndDate(ctx, "GRAPH neural NETWORKS in practice", *testDate(2021, time.September, 9))
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)

		// Same title on another date is a different paper.
		_, err = repo.FindByTitleAndDate(ctx, paper.Title, *testDate(2021, time.September, 10))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("List filters by source year and author", func(t *testing.T) {
		cleanTable(t, "papers", "authors")
		authorRepo := repository.NewPgAuthorRepository(testDB)

		withAuthor := createPaper(t, repo, &domain.Paper{
			Title:           "ArXiv Paper 2023",
			PublicationDate: testDate(2023, time.April, 1),
			PublicationYear: 2023,
			ArXivID:         "2304.00001",
			Source:          domain.SourceTypeArXiv,
		})
		createPaper(t, repo, &domain.Paper{
			Title:           "ArXiv Paper 2024",
			PublicationDate: testDate(2024, time.April, 1),
			PublicationYear: 2024,
			ArXivID:         "2404.00001",
			Source:          domain.SourceTypeArXiv,
		})
		createPaper(t, repo, &domain.Paper{
			Title:           "PubMed Paper 2024",
			PublicationDate: testDate(2024, time.July, 15),
			PublicationYear: 2024,
			PubMedID:        "39000001",
			Source:          domain.SourceTypePubMed,
		})

		author, err := authorRepo.UpsertByName(ctx, &domain.Author{Name: "Grace Hopper"})
		require.NoError(t, err)
		require.NoError(t, authorRepo.LinkAuthors(ctx, withAuthor.ID, []uuid.UUID{author.ID}))

		source := domain.SourceTypeArXiv
		papers, total, err := repo.List(ctx, repository.PaperFilter{Source: &source})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, papers, 2)

		year := 2024
		papers, total, err = repo.List(ctx, repository.PaperFilter{Year: &year})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, papers, 2)

		name := "Grace Hopper"
		papers, total, err = repo.List(ctx, repository.PaperFilter{AuthorName: &name})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, papers, 1)
		assert.Equal(t, withAuthor.ID, papers[0].ID)
		require.Len(t, papers[0].Authors, 1)
		assert.Equal(t, "Grace Hopper", papers[0].Authors[0].Name)
	})

	t.Run("List pagination keeps full total", func(t *testing.T) {
		papers, total, err := repo.List(ctx, repository.PaperFilter{Limit: 2})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total, "three papers from the previous subtest")
		assert.Len(t, papers, 2)
	})

	t.Run("CountBySource and CountByYear", func(t *testing.T) {
		// State from the List subtests: two arXiv papers and one PubMed paper.
		bySource, err := repo.CountBySource(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[domain.SourceType]int{
			domain.SourceTypeArXiv:  2,
			domain.SourceTypePubMed: 1,
		}, bySource)

		byYear, err := repo.CountByYear(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[int]int{2023: 1, 2024: 2}, byYear)
	})

	t.Run("TopCited orders by citations then title", func(t *testing.T) {
		cleanTable(t, "papers")

		for _, p := range []struct {
			title     string
			citations int
		}{
			{"Mid Cited Paper", 80},
			{"Barely Cited Paper", 10},
			{"Highly Cited Paper", 500},
			{"Also Barely Cited Paper", 10},
		} {
			createPaper(t, repo, &domain.Paper{
				Title:           p.title,
				PublicationDate: testDate(2020, time.January, 1),
				CitationCount:   p.citations,
				Source:          domain.SourceTypeSemanticScholar,
			})
		}

		top, err := repo.TopCited(ctx, 3)
		require.NoError(t, err)
		require.Len(t, top, 3)
		assert.Equal(t, "Highly Cited Paper", top[0].Title)
		assert.Equal(t, "Mid Cited Paper", top[1].Title)
		assert.Equal(t, "Also Barely Cited Paper", top[2].Title, "tie broken by title")
	})

	t.Run("Stats reflects aggregate counts", func(t *testing.T) {
		cleanTable(t, "papers", "authors", "collections")
		authorRepo := repository.NewPgAuthorRepository(testDB)
		collabRepo := repository.NewPgCollaborationRepository(testDB)
		collectionRepo := repository.NewPgCollectionRepository(testDB)

		paper := createPaper(t, repo, &domain.Paper{
			Title:           "Stats Paper",
			PublicationDate: testDate(2024, time.January, 1),
			Source:          domain.SourceTypeArXiv,
		})
		a1, err := authorRepo.UpsertByName(ctx, &domain.Author{Name: "Ada Lovelace"})
		require.NoError(t, err)
		a2, err := authorRepo.UpsertByName(ctx, &domain.Author{Name: "Charles Babbage"})
		require.NoError(t, err)
		_, err = collabRepo.RecordPaper(ctx, a1.ID, a2.ID, paper.ID, paper.PublicationDate)
		require.NoError(t, err)
		_, err = collectionRepo.CreateCollection(ctx, domain.NewCollection("stats collection", ""))
		require.NoError(t, err)

		stats, err := repo.Stats(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, stats.TotalPapers)
		assert.EqualValues(t, 2, stats.TotalAuthors)
		assert.EqualValues(t, 1, stats.TotalCollaborations)
		assert.EqualValues(t, 1, stats.TotalCollections)
	})
}

func TestPgAuthorRepository_Integration(t *testing.T) {
	cleanTable(t, "authors", "papers")
	repo := repository.NewPgAuthorRepository(testDB)
	papers := repository.NewPgPaperRepository(testDB)
	ctx := context.Background()

	t.Run("UpsertByName creates new author", func(t *testing.T) {
		author, err := repo.UpsertByName(ctx, &domain.Author{
			Name:        "Marie Curie",
			Affiliation: "Sorbonne",
		})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, author.ID)
		assert.Equal(t, "Marie Curie", author.Name)
		assert.Equal(t, "Sorbonne", author.Affiliation)
		assert.False(t, author.CreatedAt.IsZero())
	})

	t.Run("UpsertByName backfills only empty profile fields", func(t *testing.T) {
		first, err := repo.UpsertByName(ctx, &domain.Author{Name: "Alan Turing"})
		require.NoError(t, err)

		// Second sighting carries profile data the first one lacked.
		second, err := repo.UpsertByName(ctx, &domain.Author{
			Name:        "Alan Turing",
			Email:       "turing@cam.example",
			Affiliation: "King's College",
			ORCID:       "0000-0001-0000-0001",
		})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "turing@cam.example", second.Email)
		assert.Equal(t, "King's College", second.Affiliation)
		assert.Equal(t, "0000-0001-0000-0001", second.ORCID)

		// A later sighting with different values does not overwrite.
		third, err := repo.UpsertByName(ctx, &domain.Author{
			Name:  "Alan Turing",
			Email: "other@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, first.ID, third.ID)
		assert.Equal(t, "turing@cam.example", third.Email)
	})

	t.Run("GetByName", func(t *testing.T) {
		created, err := repo.UpsertByName(ctx, &domain.Author{Name: "Rosalind Franklin"})
		require.NoError(t, err)

		got, err := repo.GetByName(ctx, "Rosalind Franklin")
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("GetByName nonexistent returns not found", func(t *testing.T) {
		_, err := repo.GetByName(ctx, "Nobody Anywhere")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("LinkAuthors preserves order and replays as no-op", func(t *testing.T) {
		paper := createPaper(t, papers, &domain.Paper{
			Title:           "Computing Machinery and Intelligence",
			PublicationDate: testDate(1950, time.October, 1),
			Source:          domain.SourceTypePubMed,
		})
		a1, err := repo.UpsertByName(ctx, &domain.Author{Name: "First Author"})
		require.NoError(t, err)
		a2, err := repo.UpsertByName(ctx, &domain.Author{Name: "Second Author"})
		require.NoError(t, err)

		require.NoError(t, repo.LinkAuthors(ctx, paper.ID, []uuid.UUID{a1.ID, a2.ID}))
		require.NoError(t, repo.LinkAuthors(ctx, paper.ID, []uuid.UUID{a1.ID, a2.ID}))

		got, err := papers.GetByID(ctx, paper.ID)
		require.NoError(t, err)
		require.Len(t, got.Authors, 2)
		assert.Equal(t, "First Author", got.Authors[0].Name)
		assert.Equal(t, "Second Author", got.Authors[1].Name)
	})

	t.Run("LinkAuthors unknown paper returns not found", func(t *testing.T) {
		author, err := repo.UpsertByName(ctx, &domain.Author{Name: "Orphan Author"})
		require.NoError(t, err)

		err = repo.LinkAuthors(ctx, uuid.New(), []uuid.UUID{author.ID})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("AuthorsByFrequency ranks by paper count", func(t *testing.T) {
		cleanTable(t, "authors", "papers")

		prolific, err := repo.UpsertByName(ctx, &domain.Author{Name: "Prolific Author"})
		require.NoError(t, err)
		alpha, err := repo.UpsertByName(ctx, &domain.Author{Name: "Author Alpha"})
		require.NoError(t, err)
		beta, err := repo.UpsertByName(ctx, &domain.Author{Name: "Author Beta"})
		require.NoError(t, err)

		for i, title := range []string{"Frequency Paper One", "Frequency Paper Two"} {
			paper := createPaper(t, papers, &domain.Paper{
				Title:           title,
				PublicationDate: testDate(2024, time.March, i+1),
				Source:          domain.SourceTypeArXiv,
			})
			require.NoError(t, repo.LinkAuthors(ctx, paper.ID, []uuid.UUID{prolific.ID}))
		}
		shared := createPaper(t, papers, &domain.Paper{
			Title:           "Frequency Paper Three",
			PublicationDate: testDate(2024, time.March, 10),
			Source:          domain.SourceTypeArXiv,
		})
		require.NoError(t, repo.LinkAuthors(ctx, shared.ID, []uuid.UUID{beta.ID, alpha.ID}))

		ranked, err := repo.AuthorsByFrequency(ctx, 10)
		require.NoError(t, err)
		require.Len(t, ranked, 3)
		assert.Equal(t, "Prolific Author", ranked[0].Author.Name)
		assert.Equal(t, 2, ranked[0].PaperCount)
		// Ties resolve by name ascending.
		assert.Equal(t, "Author Alpha", ranked[1].Author.Name)
		assert.Equal(t, "Author Beta", ranked[2].Author.Name)
	})

	t.Run("AuthorsByFrequency respects limit", func(t *testing.T) {
		ranked, err := repo.AuthorsByFrequency(ctx, 1)
		require.NoError(t, err)
		require.Len(t, ranked, 1)
		assert.Equal(t, "Prolific Author", ranked[0].Author.Name)
	})

	t.Run("MostProductive mirrors frequency ranking", func(t *testing.T) {
		top, err := repo.MostProductive(ctx, 2)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, "Prolific Author", top[0].Author.Name)
		assert.Equal(t, "Author Alpha", top[1].Author.Name)
	})
}

func TestPgCollectionRepository_Integration(t *testing.T) {
	cleanTable(t, "collections", "papers")
	repo := repository.NewPgCollectionRepository(testDB)
	papers := repository.NewPgPaperRepository(testDB)
	ctx := context.Background()

	t.Run("CreateCollection assigns id and timestamp", func(t *testing.T) {
		collection, err := repo.CreateCollection(ctx, domain.NewCollection("Quantum Batch", "papers on quantum error correction"))
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, collection.ID)
		assert.Equal(t, "Quantum Batch", collection.Name)
		assert.False(t, collection.CreatedAt.IsZero())
	})

	t.Run("AddPaper is idempotent", func(t *testing.T) {
		collection, err := repo.CreateCollection(ctx, domain.NewCollection("Membership Batch", ""))
		require.NoError(t, err)
		paper := createPaper(t, papers, &domain.Paper{
			Title:           "Membership Paper",
			PublicationDate: testDate(2024, time.June, 1),
			Source:          domain.SourceTypeArXiv,
		})

		require.NoError(t, repo.AddPaper(ctx, collection.ID, paper.ID))
		require.NoError(t, repo.AddPaper(ctx, collection.ID, paper.ID))

		count := countRows(t, `SELECT COUNT(*) FROM collection_papers WHERE collection_id = $1`, collection.ID)
		assert.Equal(t, 1, count)
	})

	t.Run("AddPaper unknown paper returns not found", func(t *testing.T) {
		collection, err := repo.CreateCollection(ctx, domain.NewCollection("Dangling Batch", ""))
		require.NoError(t, err)

		err = repo.AddPaper(ctx, collection.ID, uuid.New())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Task lifecycle pending running completed", func(t *testing.T) {
		collection, err := repo.CreateCollection(ctx, domain.NewCollection("Task Batch", ""))
		require.NoError(t, err)

		task, err := repo.CreateTask(ctx, domain.NewCollectionTask(collection.ID, domain.TaskTypeCollectAuthors, map[string]interface{}{
			"seed_authors": []string{"Jane Doe"},
		}))
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusPending, task.Status)

		require.NoError(t, repo.StartTask(ctx, task.ID))

		// A second start finds no pending task.
		err = repo.StartTask(ctx, task.ID)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		require.NoError(t, repo.CompleteTask(ctx, task.ID, 7))

		var status string
		var papersCollected int
		err = testDB.QueryRow(ctx, `SELECT status, papers_collected FROM collection_tasks WHERE id = $1`, task.ID).
			Scan(&status, &papersCollected)
		require.NoError(t, err)
		assert.Equal(t, "completed", status)
		assert.Equal(t, 7, papersCollected)

		// Completed is terminal.
		err = repo.CompleteTask(ctx, task.ID, 9)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("FailTask keeps partial progress", func(t *testing.T) {
		collection, err := repo.CreateCollection(ctx, domain.NewCollection("Failing Batch", ""))
		require.NoError(t, err)
		task, err := repo.CreateTask(ctx, domain.NewCollectionTask(collection.ID, domain.TaskTypeCollectKeywords, nil))
		require.NoError(t, err)
		require.NoError(t, repo.StartTask(ctx, task.ID))

		require.NoError(t, repo.FailTask(ctx, task.ID, 3, "all sources failed"))

		var status, message string
		var papersCollected int
		err = testDB.QueryRow(ctx, `SELECT status, papers_collected, error_message FROM collection_tasks WHERE id = $1`, task.ID).
			Scan(&status, &papersCollected, &message)
		require.NoError(t, err)
		assert.Equal(t, "failed", status)
		assert.Equal(t, 3, papersCollected)
		assert.Equal(t, "all sources failed", message)
	})

	t.Run("FailTask works on tasks that never started", func(t *testing.T) {
		collection, err := repo.CreateCollection(ctx, domain.NewCollection("Never Started Batch", ""))
		require.NoError(t, err)
		task, err := repo.CreateTask(ctx, domain.NewCollectionTask(collection.ID, domain.TaskTypeCollectAuthors, nil))
		require.NoError(t, err)

		require.NoError(t, repo.FailTask(ctx, task.ID, 0, "database unavailable"))
	})

	t.Run("CreateTask unknown collection returns not found", func(t *testing.T) {
		_, err := repo.CreateTask(ctx, domain.NewCollectionTask(uuid.New(), domain.TaskTypeCollectAuthors, nil))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestPgCollaborationRepository_Integration(t *testing.T) {
	cleanTable(t, "authors", "papers")
	repo := repository.NewPgCollaborationRepository(testDB)
	authors := repository.NewPgAuthorRepository(testDB)
	papers := repository.NewPgPaperRepository(testDB)
	ctx := context.Background()

	alice, err := authors.UpsertByName(ctx, &domain.Author{Name: "Alice Chen"})
	require.NoError(t, err)
	bob, err := authors.UpsertByName(ctx, &domain.Author{Name: "Bob Martinez"})
	require.NoError(t, err)
	carol, err := authors.UpsertByName(ctx, &domain.Author{Name: "Carol Wu"})
	require.NoError(t, err)

	paper1 := createPaper(t, papers, &domain.Paper{
		Title:           "Joint Work One",
		PublicationDate: testDate(2022, time.May, 1),
		Source:          domain.SourceTypeArXiv,
	})
	paper2 := createPaper(t, papers, &domain.Paper{
		Title:           "Joint Work Two",
		PublicationDate: testDate(2023, time.November, 18),
		Source:          domain.SourceTypeArXiv,
	})

	t.Run("RecordPaper counts distinct papers per pair", func(t *testing.T) {
		collab, err := repo.RecordPaper(ctx, alice.ID, bob.ID, paper1.ID, paper1.PublicationDate)
		require.NoError(t, err)
		assert.Equal(t, 1, collab.PaperCount)
		require.NotNil(t, collab.FirstCollaborationDate)
		assert.Equal(t, "2022-05-01", collab.FirstCollaborationDate.Format("2006-01-02"))

		collab, err = repo.RecordPaper(ctx, alice.ID, bob.ID, paper2.ID, paper2.PublicationDate)
		require.NoError(t, err)
		assert.Equal(t, 2, collab.PaperCount)
		assert.Equal(t, "2022-05-01", collab.FirstCollaborationDate.Format("2006-01-02"))
		assert.Equal(t, "2023-11-18", collab.LastCollaborationDate.Format("2006-01-02"))

		// Replaying an already linked paper does not inflate the count.
		collab, err = repo.RecordPaper(ctx, alice.ID, bob.ID, paper1.ID, paper1.PublicationDate)
		require.NoError(t, err)
		assert.Equal(t, 2, collab.PaperCount)
	})

	t.Run("RecordPaper rejects self collaboration", func(t *testing.T) {
		_, err := repo.RecordPaper(ctx, alice.ID, alice.ID, paper1.ID, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("RecordPaper unknown author returns not found", func(t *testing.T) {
		_, err := repo.RecordPaper(ctx, alice.ID, uuid.New(), paper1.ID, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ListAll orders edges by weight", func(t *testing.T) {
		_, err := repo.RecordPaper(ctx, alice.ID, carol.ID, paper2.ID, paper2.PublicationDate)
		require.NoError(t, err)

		edges, err := repo.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, edges, 2)
		assert.Equal(t, domain.CollaborationEdge{Author1Name: "Alice Chen", Author2Name: "Bob Martinez", PaperCount: 2}, edges[0])
		assert.Equal(t, domain.CollaborationEdge{Author1Name: "Alice Chen", Author2Name: "Carol Wu", PaperCount: 1}, edges[1])
	})

	t.Run("Count", func(t *testing.T) {
		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 2, count)
	})
}

// createPaper inserts a paper directly through the repository, failing the
// test on error.
func createPaper(t *testing.T, repo repository.PaperRepository, paper *domain.Paper) *domain.Paper {
	t.Helper()
	created, err := repo.Create(context.Background(), paper)
	require.NoError(t, err)
	return created
}
