package config

import (
	"fmt"
	"log"

	"libr-backend/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// copiesPerBook is how many copies each seeded title gets
const copiesPerBook = 3

type seedBook struct {
	Title     string
	Theme     string
	Publisher string
	Authors   []string
	Keywords  []string
	Poster    string
}

var seedBooks = []seedBook{
	{"The Great Gatsby", "Fiction", "Penguin Books", []string{"F. Scott Fitzgerald"}, []string{"classic", "drama"}, "https://covers.openlibrary.org/b/id/7725406-M.jpg"},
	{"To Kill a Mockingbird", "Fiction", "HarperCollins", []string{"Harper Lee"}, []string{"classic", "drama", "historical"}, "https://covers.openlibrary.org/b/id/8421453-M.jpg"},
	{"1984", "Science", "Penguin Books", []string{"George Orwell"}, []string{"sci-fi", "classic", "psychological"}, "https://covers.openlibrary.org/b/id/7725382-M.jpg"},
	{"Pride and Prejudice", "Romance", "Oxford Press", []string{"Jane Austen"}, []string{"romance", "classic"}, "https://covers.openlibrary.org/b/id/7725386-M.jpg"},
	{"The Hobbit", "Fantasy", "HarperCollins", []string{"J.R.R. Tolkien"}, []string{"fantasy", "adventure"}, "https://covers.openlibrary.org/b/id/7725402-M.jpg"},
	{"Harry Potter and the Sorcerer's Stone", "Fantasy", "Hachette", []string{"Stephen King", "C.S. Lewis"}, []string{"fantasy", "magical", "adventure"}, "https://covers.openlibrary.org/b/id/8421406-M.jpg"},
	{"The Lord of the Rings", "Fantasy", "HarperCollins", []string{"J.R.R. Tolkien"}, []string{"fantasy", "adventure", "classic"}, "https://covers.openlibrary.org/b/id/8421524-M.jpg"},
	{"The Catcher in the Rye", "Fiction", "Hachette", []string{"Ernest Hemingway"}, []string{"classic", "psychological"}, "https://covers.openlibrary.org/b/id/7725388-M.jpg"},
	{"Brave New World", "Science", "Random House", []string{"Isaac Asimov", "Arthur C. Clarke"}, []string{"sci-fi", "philosophical"}, "https://covers.openlibrary.org/b/id/7725411-M.jpg"},
	{"Wuthering Heights", "Romance", "Oxford Press", []string{"Jane Austen"}, []string{"romance", "classic", "drama"}, "https://covers.openlibrary.org/b/id/8421441-M.jpg"},
	{"Jane Eyre", "Romance", "Cambridge Press", []string{"Jane Austen"}, []string{"romance", "classic"}, "https://covers.openlibrary.org/b/id/7725384-M.jpg"},
	{"The Odyssey", "History", "Oxford Press", []string{"Mark Twain"}, []string{"classic", "adventure", "historical"}, "https://covers.openlibrary.org/b/id/7725423-M.jpg"},
	{"The Iliad", "History", "Oxford Press", []string{"Mark Twain"}, []string{"classic", "historical"}, "https://covers.openlibrary.org/b/id/7725424-M.jpg"},
	{"Don Quixote", "Action", "Simon & Schuster", []string{"Gabriel García Márquez"}, []string{"classic", "adventure"}, "https://covers.openlibrary.org/b/id/8421493-M.jpg"},
	{"Moby Dick", "Action", "Penguin Books", []string{"Ernest Hemingway"}, []string{"classic", "adventure"}, "https://covers.openlibrary.org/b/id/7725425-M.jpg"},
	{"War and Peace", "History", "Random House", []string{"Toni Morrison"}, []string{"classic", "historical", "drama"}, "https://covers.openlibrary.org/b/id/8421462-M.jpg"},
	{"Crime and Punishment", "Mystery", "Random House", []string{"Philip K. Dick"}, []string{"classic", "psychological", "mystery"}, "https://covers.openlibrary.org/b/id/8421455-M.jpg"},
	{"The Brothers Karamazov", "Mystery", "Cambridge Press", []string{"Philip K. Dick"}, []string{"classic", "philosophical"}, "https://covers.openlibrary.org/b/id/8421472-M.jpg"},
	{"Anna Karenina", "Romance", "Random House", []string{"Margaret Atwood"}, []string{"romance", "classic", "drama"}, "https://covers.openlibrary.org/b/id/8421473-M.jpg"},
	{"Les Misérables", "History", "Hachette", []string{"Paulo Coelho"}, []string{"classic", "historical", "drama"}, "https://covers.openlibrary.org/b/id/8421474-M.jpg"},
}

var seedLocations = []string{
	"Aisle A", "Aisle B", "Aisle C", "Aisle D", "Aisle E",
	"Shelf 1", "Shelf 2", "Shelf 3", "Shelf 4", "Shelf 5",
}

// SeedCatalog seeds the demo catalog: 20 titles with 3 copies each
func SeedCatalog(db *gorm.DB) error {
	var count int64
	db.Model(&models.Book{}).Count(&count)
	if count > 0 {
		return nil
	}

	for i, sb := range seedBooks {
		themeID, err := seedTheme(db, sb.Theme)
		if err != nil {
			return err
		}
		publisherID, err := seedPublisher(db, sb.Publisher)
		if err != nil {
			return err
		}

		book := models.Book{
			CatalogCode: fmt.Sprintf("BOOK%05d", i+1),
			Title:       sb.Title,
			ThemeID:     themeID,
			PublisherID: publisherID,
			Poster:      sb.Poster,
		}

		for _, name := range sb.Authors {
			var author models.Author
			if err := db.Where("name = ?", name).First(&author).Error; err != nil {
				if err != gorm.ErrRecordNotFound {
					return err
				}
				author = models.Author{Name: name}
				if err := db.Create(&author).Error; err != nil {
					return err
				}
			}
			book.Authors = append(book.Authors, author)
		}

		for _, word := range sb.Keywords {
			var kw models.Keyword
			if err := db.Where("word = ?", word).First(&kw).Error; err != nil {
				if err != gorm.ErrRecordNotFound {
					return err
				}
				kw = models.Keyword{Word: word}
				if err := db.Create(&kw).Error; err != nil {
					return err
				}
			}
			book.Keywords = append(book.Keywords, kw)
		}

		if err := db.Create(&book).Error; err != nil {
			return err
		}

		for c := 0; c < copiesPerBook; c++ {
			copy := models.BookCopy{
				BookID:      book.ID,
				Location:    seedLocations[(i+c)%len(seedLocations)],
				PublisherID: publisherID,
				IsAvailable: true,
				State:       100,
			}
			if err := db.Create(&copy).Error; err != nil {
				return err
			}
		}

		log.Printf("   Created book: %s (%s)", book.Title, book.CatalogCode)
	}

	return nil
}

func seedTheme(db *gorm.DB, name string) (uint, error) {
	var t models.Theme
	err := db.Where("name = ?", name).First(&t).Error
	if err == gorm.ErrRecordNotFound {
		t = models.Theme{Name: name}
		if err := db.Create(&t).Error; err != nil {
			return 0, err
		}
		return t.ID, nil
	}
	return t.ID, err
}

func seedPublisher(db *gorm.DB, name string) (uint, error) {
	var p models.Publisher
	err := db.Where("name = ?", name).First(&p).Error
	if err == gorm.ErrRecordNotFound {
		p = models.Publisher{Name: name}
		if err := db.Create(&p).Error; err != nil {
			return 0, err
		}
		return p.ID, nil
	}
	return p.ID, err
}
