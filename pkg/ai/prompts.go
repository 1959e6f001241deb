package ai

// RelationSystemPrompt frames the model as a pine wilt disease domain expert.
const RelationSystemPrompt = `你是松材线虫病领域的知识图谱专家，熟悉松材线虫、松墨天牛、寄主松树、环境因子以及防治措施之间的关系。
你只能从给定的关系列表中选择一个关系，并且只输出关系名称本身，不要输出任何解释或标点。`

// RelationPrompt asks for the single relation holding from head to tail.
// Arguments: head entity, tail entity, relation labels joined by "、".
const RelationPrompt = `请判断实体"%s"与实体"%s"之间最合适的关系。
可选关系：%s
只输出其中一个关系名称。`

// VisionPrompt asks a vision model for the objects in a field photograph.
const VisionPrompt = `你是松材线虫病野外调查的图像识别专家。请识别图片中的所有物体，尤其关注松树、松墨天牛等昆虫、病害症状（针叶变色、萎蔫、树脂分泌异常）以及周围环境。

以 JSON 返回结果，格式为 {"objects":[{"name":"物体名称","confidence":0.0,"category":"类别","description":"简短描述","location":"在图中的位置"}]}。
category 只能取以下值之一：beneficial_insect, insect, plant, disease_symptom, tree, vehicle, building, natural, industrial, other。
confidence 为 0 到 1 之间的小数。

如果无法输出 JSON，则每行输出一个物体，格式为：名称|置信度|类别|描述|位置`
