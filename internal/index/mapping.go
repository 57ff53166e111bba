package index

// Index mappings. The content analyzer folds accents so "ha noi" matches
// "Hà Nội"; the autocomplete field pairs an edge_ngram index analyzer with a
// plain search analyzer so user input is not ngrammed at query time.

const moviesMapping = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "tokenizer": {
        "autocomplete_tokenizer": {
          "type": "edge_ngram",
          "min_gram": 2,
          "max_gram": 20,
          "token_chars": ["letter", "digit"]
        }
      },
      "analyzer": {
        "content_analyzer": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "asciifolding", "stop"]
        },
        "autocomplete_analyzer": {
          "type": "custom",
          "tokenizer": "autocomplete_tokenizer",
          "filter": ["lowercase", "asciifolding"]
        },
        "autocomplete_search_analyzer": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "asciifolding"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "movieId": {"type": "keyword"},
      "slug": {"type": "keyword"},
      "name": {
        "type": "text",
        "analyzer": "content_analyzer",
        "fields": {
          "autocomplete": {
            "type": "text",
            "analyzer": "autocomplete_analyzer",
            "search_analyzer": "autocomplete_search_analyzer"
          },
          "keyword": {"type": "keyword", "ignore_above": 256}
        }
      },
      "originName": {
        "type": "text",
        "analyzer": "content_analyzer",
        "fields": {
          "autocomplete": {
            "type": "text",
            "analyzer": "autocomplete_analyzer",
            "search_analyzer": "autocomplete_search_analyzer"
          },
          "keyword": {"type": "keyword", "ignore_above": 256}
        }
      },
      "description": {"type": "text", "analyzer": "content_analyzer"},
      "type": {"type": "keyword"},
      "status": {"type": "keyword"},
      "section": {"type": "keyword"},
      "isRecommended": {"type": "boolean"},
      "year": {"type": "integer"},
      "quality": {"type": "keyword"},
      "lang": {"type": "keyword"},
      "view": {"type": "long"},
      "rating": {"type": "float"},
      "actors": {"type": "text", "analyzer": "content_analyzer"},
      "directors": {"type": "text", "analyzer": "content_analyzer"},
      "categories": {
        "type": "nested",
        "properties": {
          "id": {"type": "keyword"},
          "name": {"type": "text", "analyzer": "content_analyzer"},
          "slug": {"type": "keyword"}
        }
      },
      "countries": {
        "type": "nested",
        "properties": {
          "id": {"type": "keyword"},
          "name": {"type": "text", "analyzer": "content_analyzer"},
          "slug": {"type": "keyword"}
        }
      },
      "thumbUrl": {"type": "keyword", "index": false},
      "posterUrl": {"type": "keyword", "index": false},
      "trailerUrl": {"type": "keyword", "index": false},
      "episodeCount": {"type": "integer"},
      "createdAt": {"type": "date"},
      "modifiedAt": {"type": "date"}
    }
  }
}`

const episodesMapping = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "analyzer": {
        "content_analyzer": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "asciifolding", "stop"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "slug": {"type": "keyword"},
      "movieSlug": {"type": "keyword"},
      "name": {"type": "text", "analyzer": "content_analyzer"},
      "serverName": {"type": "keyword"},
      "filename": {"type": "keyword", "index": false},
      "linkEmbed": {"type": "keyword", "index": false},
      "linkM3u8": {"type": "keyword", "index": false}
    }
  }
}`
