package milvus

import (
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// CollectionServiceEmbeddings 服务名向量集合
const CollectionServiceEmbeddings = "service_embeddings"

// ServiceEmbeddingsSchema 服务向量 Collection Schema。
// 服务名同时作为主键与返回字段，检索命中即可直接得到服务名。
func ServiceEmbeddingsSchema(dimension int) *entity.Schema {
	return &entity.Schema{
		CollectionName: CollectionServiceEmbeddings,
		Description:    "Cloud service name embeddings for semantic entity resolution",
		Fields: []*entity.Field{
			{
				Name:       "service_name",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "256",
				},
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": strconv.Itoa(dimension),
				},
			},
		},
	}
}
